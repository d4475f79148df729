package detect

import (
	"errors"
	"fmt"
)

// Kind: класс сбоя детекции.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
)

// DetectionError: детекция не состоялась. Отличается от отрицательного результата:
// пользователь видит "detection unavailable, try again".
type DetectionError struct {
	Kind   Kind
	Status int // HTTP-статус для KindStatus
	Err    error
}

func (e *DetectionError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("detection failed: status %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("detection failed (%s): %v", e.Kind, e.Err)
	}
}

func (e *DetectionError) Unwrap() error { return e.Err }

// ImageReadError: выбранное изображение не удалось прочитать/декодировать.
type ImageReadError struct {
	Err error
}

func (e *ImageReadError) Error() string { return "image read failed: " + e.Err.Error() }

func (e *ImageReadError) Unwrap() error { return e.Err }

// IsDetectionError / IsImageReadError: короткие проверки для вызывающего кода.
func IsDetectionError(err error) bool {
	var de *DetectionError
	return errors.As(err, &de)
}

func IsImageReadError(err error) bool {
	var ie *ImageReadError
	return errors.As(err, &ie)
}
