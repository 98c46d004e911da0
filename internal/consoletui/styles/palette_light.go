package styles

// LightTheme is a palette for light terminal backgrounds.
var LightTheme = Theme{
	Name:        "light",
	BorderStyle: "rounded",
	Base: BaseColors{
		Background: "255",
		Foreground: "235",
		Muted:      "244",
		Accent:     "26",
		Border:     "250",
	},
	Message: MessageColors{
		Inbound:  "55",
		Outbound: "25",
		System:   "130",
		Pending:  "248",
	},
	Status: StatusColors{
		New:       "130",
		Active:    "28",
		Closed:    "245",
		Escalated: "124",
	},
	Chrome: ChromeColors{
		Header:       "25",
		Footer:       "25",
		SelectedItem: "26",
		Warning:      "130",
		Error:        "124",
	},
	Borders: BorderColors{
		ActivePane:   "26",
		InactivePane: "250",
		Divider:      "252",
	},
}
