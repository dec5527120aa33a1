package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bayline/server/internal/backend"
	errx "github.com/bayline/server/internal/core/error"
	"github.com/cloudwego/eino/schema"
)

const (
	ToolAvailabilityToday    = "get_availability_today"
	ToolAvailabilityTomorrow = "get_availability_tomorrow"
	ToolAvailabilitySpecific = "get_availability_specific"
)

// Call is a decoded function selection. Exactly one of the types below.
type Call interface {
	Name() string
	Command() backend.Command
	// Date is nil for calls without a date parameter.
	Date() *time.Time
}

type AvailabilityToday struct{}

func (AvailabilityToday) Name() string             { return ToolAvailabilityToday }
func (AvailabilityToday) Command() backend.Command { return backend.AvailabilityToday }
func (AvailabilityToday) Date() *time.Time         { return nil }

type AvailabilityTomorrow struct{}

func (AvailabilityTomorrow) Name() string             { return ToolAvailabilityTomorrow }
func (AvailabilityTomorrow) Command() backend.Command { return backend.AvailabilityTomorrow }
func (AvailabilityTomorrow) Date() *time.Time         { return nil }

type AvailabilitySpecific struct {
	On time.Time
}

func (AvailabilitySpecific) Name() string             { return ToolAvailabilitySpecific }
func (AvailabilitySpecific) Command() backend.Command { return backend.AvailabilitySpecific }
func (c AvailabilitySpecific) Date() *time.Time       { return &c.On }

type specificArgs struct {
	Date *string `json:"date"`
}

// Decode turns a raw selection into a Call.
// It returns errx.ErrUnknownFunction for names outside the declared set and
// errx.ErrDateMissing / errx.ErrDateInvalid when the specific-date call cannot be served.
func Decode(name, arguments string) (Call, error) {
	switch name {
	case ToolAvailabilityToday:
		return AvailabilityToday{}, nil
	case ToolAvailabilityTomorrow:
		return AvailabilityTomorrow{}, nil
	case ToolAvailabilitySpecific:
		return decodeSpecific(arguments)
	default:
		return nil, fmt.Errorf("%w: %q", errx.ErrUnknownFunction, name)
	}
}

func decodeSpecific(arguments string) (Call, error) {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		arguments = "{}"
	}
	var args specificArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments are not a JSON object: %v", errx.ErrDateMissing, err)
	}
	if args.Date == nil || strings.TrimSpace(*args.Date) == "" {
		return nil, errx.ErrDateMissing
	}
	on, err := time.Parse(backend.DateLayout, strings.TrimSpace(*args.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errx.ErrDateInvalid, *args.Date)
	}
	return AvailabilitySpecific{On: on}, nil
}

// Declarations returns the static function set offered to the model.
func Declarations() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name:        ToolAvailabilityToday,
			Desc:        "Retrieve the availability for today.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name:        ToolAvailabilityTomorrow,
			Desc:        "Retrieve the availability for tomorrow.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolAvailabilitySpecific,
			Desc: "Retrieve the availability for a specific date.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     "string",
					Desc:     "The date to check availability for, in YYYY-MM-DD format.",
					Required: true,
				},
			}),
		},
	}
}
