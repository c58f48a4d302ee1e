package domain

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")
