package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/storage"
)

// ValidationError reports a form field that was missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type playerForm struct {
	Name  string `form:"name" validate:"required,max=100"`
	Level string `form:"level" validate:"required,oneof=guest normal permanent"`
}

type sessionForm struct {
	Date        string  `form:"date_str" validate:"required,datetime=2006-01-02"`
	Price       float64 `form:"price" validate:"gte=0"`
	PlayersJSON string  `form:"players_json" validate:"required"`
}

type paymentForm struct {
	PlayerID int64   `form:"player_id" validate:"gt=0"`
	Amount   float64 `form:"amount"`
}

// newValidator reports fields by their form names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// check validates a parsed form and converts the first failing field into
// a ValidationError.
func (s *Server) check(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must not be negative"
	case "gt":
		return "must be positive"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	}
	return "is invalid"
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
}

func parsePlayerForm(r *http.Request) playerForm {
	return playerForm{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Level: r.PostFormValue("level"),
	}
}

func parseSessionForm(r *http.Request) (sessionForm, error) {
	price, err := parseNumber("price", r.PostFormValue("price"))
	if err != nil {
		return sessionForm{}, err
	}
	return sessionForm{
		Date:        strings.TrimSpace(r.PostFormValue("date_str")),
		Price:       price,
		PlayersJSON: r.PostFormValue("players_json"),
	}, nil
}

func parsePaymentForm(r *http.Request) (paymentForm, error) {
	playerID, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("player_id")), 10, 64)
	if err != nil {
		return paymentForm{}, &ValidationError{Field: "player_id", Message: "must be a player id"}
	}
	amount, err := parseNumber("amount", r.PostFormValue("amount"))
	if err != nil {
		return paymentForm{}, err
	}
	return paymentForm{PlayerID: playerID, Amount: amount}, nil
}

// parseNumber accepts any finite decimal number.
func parseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Message: "must be a number"}
	}
	return v, nil
}

// pathID reads the {id} wildcard. Ids that cannot exist are reported as
// not found.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, storage.ErrNotFound)
	}
	return id, nil
}

// levelOf converts a validated level field.
func levelOf(f playerForm) models.Level {
	return models.Level(f.Level)
}
