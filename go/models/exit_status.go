package models

import "fmt"

// ExitStatus is returned by Run when the program terminates itself.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}
