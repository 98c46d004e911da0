package styles

// DefaultTheme is the baseline dark palette for the console.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Message: MessageColors{
		Inbound:  "147",
		Outbound: "81",
		System:   "214",
		Pending:  "243",
	},
	Status: StatusColors{
		New:       "220",
		Active:    "41",
		Closed:    "243",
		Escalated: "203",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Warning:      "220",
		Error:        "203",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
}
