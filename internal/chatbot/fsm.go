// Package chatbot implements the public site's scripted assistant as an
// explicit finite-state machine: a linear form wizard that collects name,
// phone and preferred date, then hands off to the clinic's WhatsApp. There
// is no language understanding and no server-side session; callers hold the
// state and echo it back with each message.
package chatbot

import (
	"fmt"
	"net/url"
	"strings"
)

type State string

const (
	StateStart        State = "start"
	StateMenu         State = "menu"
	StateCollectName  State = "collect_name"
	StateCollectPhone State = "collect_phone"
	StateCollectDate  State = "collect_date"
	StateDone         State = "done"
)

// Form accumulates what the wizard has collected so far.
type Form struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Date    string `json:"date,omitempty"`
	Service string `json:"service,omitempty"`
}

const greeting = "Olá! Sou o assistente virtual da Saúde Certa. Posso ajudar com:\n" +
	"• Agendar consulta\n• Sobre serviços\n• Falar com o atendimento humano\n\n" +
	"Selecione uma opção ou escreva sua dúvida."

const servicesReply = "Oferecemos Periodontia, Cirurgia Oral, Clareamento, " +
	"Tratamento de Canal e Ortodontia. Deseja agendar ou falar com o atendimento?"

const handoffReply = "Vou transferir sua solicitação para o atendimento humano. " +
	"Deseja que eu gere uma mensagem para o WhatsApp com seus dados?"

// Start opens the conversation: greeting plus the option menu.
func Start() (State, string) {
	return StateMenu, greeting
}

// Step is the pure transition function. It never mutates its inputs; the
// returned form carries the input folded into the right field for the state.
func Step(state State, form Form, input string) (State, Form, string) {
	input = strings.TrimSpace(input)

	switch state {
	case StateStart:
		next, reply := Start()
		return next, form, reply

	case StateMenu:
		lower := strings.ToLower(input)
		switch {
		case strings.Contains(lower, "agendar"):
			return StateCollectName, form, "Perfeito — vou coletar alguns dados. Qual o seu nome completo?"
		case strings.Contains(lower, "serv"):
			return StateMenu, form, servicesReply
		default:
			return StateDone, form, handoffReply
		}

	case StateCollectName:
		form.Name = input
		return StateCollectPhone, form, "Ótimo. Qual telefone para contato (WhatsApp)?"

	case StateCollectPhone:
		form.Phone = input
		return StateCollectDate, form, "Perfeito. Qual data/horário prefere? (ex: 2025-05-12 14:30)"

	case StateCollectDate:
		form.Date = input
		reply := fmt.Sprintf(
			"Confirmei seus dados:\nNome: %s\nTelefone: %s\nData: %s\n\n"+
				"Deseja enviar estes dados para o WhatsApp da clínica?",
			orDash(form.Name), orDash(form.Phone), orDash(form.Date),
		)
		return StateDone, form, reply

	default: // StateDone and anything unknown
		return StateDone, form, "Obrigado — em breve um atendente humano poderá continuar. " +
			"Enquanto isso, posso gerar uma mensagem para WhatsApp com sua solicitação."
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// WhatsAppLink builds the wa.me handoff URL with the collected fields.
func WhatsAppLink(form Form) string {
	msg := fmt.Sprintf("Olá! Gostaria de agendar uma consulta.\nNome: %s\nTelefone: %s\nData/Preferência: %s",
		form.Name, form.Phone, form.Date)

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, form.Phone)

	if digits == "" {
		return "https://wa.me/?text=" + url.QueryEscape(msg)
	}
	return "https://wa.me/55" + digits + "?text=" + url.QueryEscape(msg)
}
