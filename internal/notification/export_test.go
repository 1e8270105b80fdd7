package notification

var NewEnvelopeForTest = newEnvelope
