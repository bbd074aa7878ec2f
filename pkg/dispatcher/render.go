package dispatcher

// Render formats an Outcome for display.
func Render(o Outcome) string {
	if o.OK {
		return o.Message
	}
	return "Error: " + o.Message
}
