package llm

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized = errors.New("LLM client not initialized")
	ErrNoAPIKey       = errors.New("API key is required")
	ErrInvalidAPIKey  = errors.New("API key was rejected")
	ErrNoModel        = errors.New("model is required")
	ErrNoText         = errors.New("no text detected")
)

// ErrorMessage turns a backend failure into the text shown in a result window.
func ErrorMessage(err error, lang string) string {
	if err == nil {
		return ""
	}
	vi := lang == "vi"
	switch {
	case errors.Is(err, ErrNoAPIKey):
		if vi {
			return "Bạn chưa nhập API key!"
		}
		return "You haven't entered an API key!"
	case errors.Is(err, ErrInvalidAPIKey):
		if vi {
			return "API key không hợp lệ!"
		}
		return "Invalid API key!"
	default:
		if vi {
			return fmt.Sprintf("Lỗi: %s", err)
		}
		return fmt.Sprintf("Error: %s", err)
	}
}
