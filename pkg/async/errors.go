package async

import "errors"

var ErrNilTask = errors.New("async: Gather called with a nil task")
