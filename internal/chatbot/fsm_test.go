package chatbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartOpensMenu(t *testing.T) {
	state, reply := Start()
	assert.Equal(t, StateMenu, state)
	assert.Contains(t, reply, "Agendar consulta")
}

func TestFullBookingFlow(t *testing.T) {
	state, form, reply := Step(StateMenu, Form{}, "Quero agendar uma consulta")
	assert.Equal(t, StateCollectName, state)
	assert.Contains(t, reply, "nome completo")

	state, form, reply = Step(state, form, "Maria Souza")
	assert.Equal(t, StateCollectPhone, state)
	assert.Equal(t, "Maria Souza", form.Name)
	assert.Contains(t, reply, "telefone")

	state, form, reply = Step(state, form, "(64) 99999-0000")
	assert.Equal(t, StateCollectDate, state)
	assert.Equal(t, "(64) 99999-0000", form.Phone)

	state, form, reply = Step(state, form, "2025-05-12 14:30")
	assert.Equal(t, StateDone, state)
	assert.Equal(t, "2025-05-12 14:30", form.Date)
	assert.Contains(t, reply, "Maria Souza")
	assert.Contains(t, reply, "2025-05-12 14:30")
}

func TestMenuServicesLoopsBack(t *testing.T) {
	state, _, reply := Step(StateMenu, Form{}, "Sobre serviços")
	assert.Equal(t, StateMenu, state, "asking about services keeps the menu open")
	assert.Contains(t, reply, "Ortodontia")
}

func TestMenuFallbackHandsOff(t *testing.T) {
	state, _, reply := Step(StateMenu, Form{}, "quanto custa um canal?")
	assert.Equal(t, StateDone, state)
	assert.Contains(t, reply, "atendimento humano")
}

func TestStepIsPure(t *testing.T) {
	orig := Form{Name: "Maria"}
	_, updated, _ := Step(StateCollectPhone, orig, "649")
	assert.Empty(t, orig.Phone, "input form must not be mutated")
	assert.Equal(t, "649", updated.Phone)
}

func TestDoneStateIsTerminal(t *testing.T) {
	state, _, _ := Step(StateDone, Form{}, "anything")
	assert.Equal(t, StateDone, state)

	state, _, _ = Step(State("bogus"), Form{}, "anything")
	assert.Equal(t, StateDone, state)
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink(Form{Name: "Maria", Phone: "(64) 99999-0000", Date: "2025-05-12"})
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5564999990000?text="))
	assert.Contains(t, link, "Maria")

	link = WhatsAppLink(Form{Name: "Maria"})
	assert.True(t, strings.HasPrefix(link, "https://wa.me/?text="))
}
