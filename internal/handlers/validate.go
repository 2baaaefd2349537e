package handlers

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"atelier/internal/models"
)

// Validation limits for contact inquiries and admin forms.
const (
	maxNameLen    = 200
	maxEmailLen   = 200
	maxPhoneLen   = 50
	maxMessageLen = 5_000
	maxTitleLen   = 300
	maxSlugLen    = 300
	maxTextLen    = 100_000
)

// validateInquiry checks a contact form submission and returns every
// problem found, in form order.
func validateInquiry(in models.Inquiry) []string {
	var errs []string
	switch {
	case in.Name == "":
		errs = append(errs, "Please enter your name.")
	case utf8.RuneCountInString(in.Name) > maxNameLen:
		errs = append(errs, "Name is too long (max 200 characters).")
	}

	switch {
	case in.Email == "":
		errs = append(errs, "Please enter your email address.")
	case utf8.RuneCountInString(in.Email) > maxEmailLen:
		errs = append(errs, "Email is too long (max 200 characters).")
	default:
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			errs = append(errs, "Please enter a valid email address.")
		}
	}

	if utf8.RuneCountInString(in.Phone) > maxPhoneLen {
		errs = append(errs, "Phone number is too long (max 50 characters).")
	}

	switch {
	case in.Message == "":
		errs = append(errs, "Please enter a message.")
	case utf8.RuneCountInString(in.Message) > maxMessageLen:
		errs = append(errs, "Message is too long (max 5,000 characters).")
	}
	return errs
}

// validateProject checks the project form and returns the first error.
func validateProject(p models.Project) string {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(p.Slug) > maxSlugLen {
		return "Slug is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(p.FullDescription) > maxTextLen {
		return "Full description is too long (max 100,000 characters)."
	}
	return ""
}

// validateService checks the service form and returns the first error.
func validateService(s models.Service) string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(s.Description) > maxTextLen {
		return "Description is too long (max 100,000 characters)."
	}
	return ""
}

// validateText checks that no singleton field exceeds the text limit.
func validateText(fields map[string]string) string {
	for _, v := range fields {
		if utf8.RuneCountInString(v) > maxTextLen {
			return "A field is too long (max 100,000 characters)."
		}
	}
	return ""
}
