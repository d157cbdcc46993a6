package validation

// Messages shown next to a field once the user has interacted with it.
const (
	MsgRequired   = "Completa este campo"
	MsgIdentifier = "El RUT ingresado no es válido."
	MsgEmail      = "El formato e-mail es incorrecto."
	MsgLocality   = "Por favor, selecciona una comuna de la lista."
	MsgNumber     = "Ingresa un número válido."
	MsgOption     = "Selecciona una opción de la lista."
	MsgPattern    = "Utiliza un formato que coincida con el solicitado."
)
