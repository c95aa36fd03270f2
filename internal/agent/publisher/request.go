package publisher

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trendgist/internal/media"
)

// Request is the publish input
type Request struct {
	Topic           string     `json:"topic" validate:"required,notblank,max=200"`
	ImageURL        *string    `json:"image_url,omitempty" validate:"omitempty,httpurl"`
	TopicCategory   *string    `json:"topic_category,omitempty" validate:"omitempty,max=64"`
	SourceURL       *string    `json:"source_url,omitempty" validate:"omitempty,httpurl"`
	NewsPublishedAt *time.Time `json:"news_published_at,omitempty"`
	TrendID         *string    `json:"trend_id,omitempty" validate:"omitempty,trendid"`
}

// normalize trims fields and treats empty optional strings as absent
func (r *Request) normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.ImageURL = trimOptional(r.ImageURL)
	r.TopicCategory = trimOptional(r.TopicCategory)
	r.SourceURL = trimOptional(r.SourceURL)
	r.TrendID = trimOptional(r.TrendID)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// requestValidator wraps go-playground/validator with the publish rules
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	validate := validator.New()

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Trend ids are canonical hyphenated UUIDs in either letter case
	_ = validate.RegisterValidation("trendid", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		if len(id) != 36 {
			return false
		}
		_, err := uuid.Parse(id)
		return err == nil
	})
	_ = validate.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return media.ValidURL(fl.Field().String())
	})

	// Use JSON field names for validation error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &requestValidator{validate: validate}
}

// Validate returns a message listing every invalid field, or "" when valid
func (v *requestValidator) Validate(req *Request) string {
	err := v.validate.Struct(req)
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters long", field, fe.Param()))
		case "trendid":
			messages = append(messages, fmt.Sprintf("%s must be a valid UUID", field))
		case "httpurl":
			messages = append(messages, fmt.Sprintf("%s must be a valid http(s) URL", field))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	sort.Strings(messages)
	return strings.Join(messages, "; ")
}
