package email

import (
	"fmt"
)

func InstructorWelcome(name, to string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Welcome aboard, educator",
		Text: fmt.Sprintf("Hi %s,\n\nyour educator profile is live. "+
			"You can publish your first course at /teach/courses/new.\n", name),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>your educator profile is live. "+
			`You can publish your first course <a href="/teach/courses/new">here</a>.</p>`, name),
	}
}

func PaymentReceipt(name, to, course, amount string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your enrollment in " + course,
		Text:    fmt.Sprintf("Hi %s,\n\nwe received %s for %s. Happy learning!\n", name, amount, course),
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>we received <b>%s</b> for %s. Happy learning!</p>", name, amount, course),
	}
}

func PayoutRequested(name, to, amount string) Message {
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Payout requested",
		Text:    fmt.Sprintf("Hi %s,\n\nyour payout of %s is on its way.\n", name, amount),
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>your payout of <b>%s</b> is on its way.</p>", name, amount),
	}
}
