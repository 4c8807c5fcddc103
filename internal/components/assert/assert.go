package assert

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

// True panics with the given message when the condition does not hold.
func True(cond bool, message string) {
	if !cond {
		panic(message)
	}
}
