package checkout

import "github.com/arckit11/v-novaa/internal/assistant/model"

// Step is a guided checkout state.
type Step int

const (
	StepIdle Step = iota
	StepName
	StepEmail
	StepAddress
	StepPhone
	StepCardName
	StepCardNumber
	StepExpiryDate
	StepCVV
	StepConfirm
	StepComplete
)

// Steps lists every state in visit order.
var Steps = []Step{
	StepIdle, StepName, StepEmail, StepAddress, StepPhone, StepCardName,
	StepCardNumber, StepExpiryDate, StepCVV, StepConfirm, StepComplete,
}

// Spoken prompts and replies.
const (
	PromptName       = "Let's complete your order. What is your full name?"
	PromptEmail      = "Great! What is your email address?"
	PromptAddress    = "What is your shipping address?"
	PromptPhone      = "What is your phone number?"
	PromptCardName   = "Now for payment details. What name is on your card?"
	PromptCardNumber = "What is your card number?"
	PromptExpiryDate = "What is the expiry date? Please say it as month and year."
	PromptCVV        = "What is the CVV or security code on the back of your card?"
	PromptConfirm    = "I have all your details. Would you like me to place the order?"
	PromptComplete   = "Your order has been placed successfully!"

	ReplyCancelled      = "Order cancelled. Let me know if you need anything else."
	ReplyConfirmAgain   = "Please say yes to confirm or no to cancel."
	RepromptPhone       = "I didn't catch that. Please say your phone number again."
	RepromptCardNumber  = "I need the full card number. Please say all 16 digits."
	RepromptCVV         = "The CVV should be 3 or 4 digits. Please try again."
	RepromptEmail       = "That doesn't sound like a valid email address. Please say it again."
	RepromptExpiryDate  = "I couldn't understand the expiry date. Please say the month and year, like oh nine twenty six."
	repromptRateLimited = "I'm having trouble processing your %s due to high demand. Please try again in a moment."
	repromptUnclear     = "I couldn't understand your %s. Could you please repeat it?"
)

// stepSpec is one row of the transition table.
type stepSpec struct {
	name      string
	label     string
	field     string
	fieldType model.FieldType
	prompt    string
	normalize normalizer
	next      Step
}

// transitions is total over Steps. Field-collecting steps carry a field and normalizer.
var transitions = map[Step]stepSpec{
	StepIdle:       {name: "idle", next: StepName},
	StepName:       {name: "name", label: "name", field: model.KeyName, fieldType: model.FieldName, prompt: PromptName, normalize: normalizeName, next: StepEmail},
	StepEmail:      {name: "email", label: "email", field: model.KeyEmail, fieldType: model.FieldEmail, prompt: PromptEmail, normalize: normalizeEmail, next: StepAddress},
	StepAddress:    {name: "address", label: "address", field: model.KeyAddress, fieldType: model.FieldAddress, prompt: PromptAddress, normalize: normalizeText, next: StepPhone},
	StepPhone:      {name: "phone", label: "phone number", field: model.KeyPhone, fieldType: model.FieldPhone, prompt: PromptPhone, normalize: normalizePhone, next: StepCardName},
	StepCardName:   {name: "cardName", label: "card name", field: model.KeyCardName, fieldType: model.FieldCardName, prompt: PromptCardName, normalize: normalizeName, next: StepCardNumber},
	StepCardNumber: {name: "cardNumber", label: "card number", field: model.KeyCardNumber, fieldType: model.FieldCardNumber, prompt: PromptCardNumber, normalize: normalizeCardNumber, next: StepExpiryDate},
	StepExpiryDate: {name: "expiryDate", label: "expiry date", field: model.KeyExpiryDate, fieldType: model.FieldExpiryDate, prompt: PromptExpiryDate, normalize: normalizeExpiry, next: StepCVV},
	StepCVV:        {name: "cvv", label: "CVV", field: model.KeyCVV, fieldType: model.FieldCVV, prompt: PromptCVV, normalize: normalizeCVV, next: StepConfirm},
	StepConfirm:    {name: "confirm", prompt: PromptConfirm, next: StepComplete},
	StepComplete:   {name: "complete", prompt: PromptComplete, next: StepComplete},
}

func (s Step) String() string {
	if spec, ok := transitions[s]; ok {
		return spec.name
	}
	return "unknown"
}

// Prompt returns the question spoken when entering s.
func (s Step) Prompt() string {
	return transitions[s].prompt
}

// collects reports whether s captures a field value.
func (s Step) collects() bool {
	return transitions[s].field != ""
}

// ParseStep maps a step name back to its Step.
func ParseStep(name string) (Step, bool) {
	for _, s := range Steps {
		if transitions[s].name == name {
			return s, true
		}
	}
	return StepIdle, false
}
