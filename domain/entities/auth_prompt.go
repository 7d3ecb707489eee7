package entities

// AuthPrompt represents a prompt-response pair during an in-band login
type AuthPrompt struct {
	WaitFor string // prompt to wait for
	SendCmd string // command to send (empty means just wait)
}

// LoginSequence returns the default in-band login for Cisco style devices.
func LoginSequence(username, password string) []AuthPrompt {
	return []AuthPrompt{
		{WaitFor: "sername:", SendCmd: username},
		{WaitFor: "assword:", SendCmd: password},
	}
}
