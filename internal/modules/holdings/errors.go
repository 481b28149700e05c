package holdings

import "errors"

var ErrProgramNotFound = errors.New("purchase program not found")
