package services

// Kind classifies a service error; handlers map it to an HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInternal
)

// User-facing messages
const (
	MsgMissingFields     = "Error. Ingresa todos los datos necesarios."
	MsgInvalidEmail      = "Error. El correo no tiene un formato válido."
	MsgEmailRegistered   = "Error. Este correo ya está registrado."
	MsgEmailInUse        = "Error. Este correo ya está en uso por otro usuario."
	MsgWeakPassword      = "La contraseña debe tener mínimo 8 caracteres, una mayúscula, una minúscula, un número y un carácter especial."
	MsgPasswordTooLong   = "Error. La contraseña no puede superar 72 bytes."
	MsgMissingCredential = "Error. Debes enviar correo y contraseña."
	MsgBadCredentials    = "Error. Usuario o contraseña incorrectos."
	MsgNothingToUpdate   = "Error. Se debe enviar al menos un dato para actualizar."
	MsgUserNotFound      = "Error. Usuario no encontrado."
	MsgPostNotFound      = "Error. Post no encontrado."
	MsgEmptyPost         = "Error. El post no puede estar vacío."
	MsgNotImage          = "Error. El archivo debe ser una imagen."
	MsgEmptyFile         = "Error. El archivo está vacío."
	MsgForbidden         = "Error. No tienes permiso para realizar esta acción."
	MsgInternal          = "Error interno del servidor."
)

// Error is returned by every service operation that fails
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// internalError hides err behind the generic message; err is kept for logging.
func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: err}
}
