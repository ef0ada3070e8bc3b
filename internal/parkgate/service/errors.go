package service

import "errors"

var (
	ErrInvalidUID   = errors.New("uid is required")
	ErrInvalidPlate = errors.New("license_plate is required")
	ErrInvalidName  = errors.New("name is required")
)
