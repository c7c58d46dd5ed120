package types

type (
	// Body of every non-2xx API response
	Error struct {
		Fields  *map[string]string `json:"fields,omitempty"`
		Message string             `json:"message"`
	}
)

func StringError(err string) Error {
	return Error{Message: err}
}
