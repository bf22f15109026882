// Package setup runs the interactive configuration wizard.
package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/chartsense/config"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// ErrCancelled is returned when the user declines to save.
var ErrCancelled = errors.New("setup cancelled by user")

// Answers holds the raw wizard input.
type Answers struct {
	APIURL             string
	APIKey             string
	VisionModel        string
	ReasoningModel     string
	ReasoningTimeout   string
	StrictSafety       bool
	ConfidenceFloor    string
	DisclaimerPosition string
	ServerAddr         string
	RateLimitRPS       string
	JournalEnabled     bool
	JournalDir         string
}

// DefaultAnswers pre-fills the wizard from the built-in configuration.
func DefaultAnswers() Answers {
	d := config.Default()
	return Answers{
		APIURL:             d.LLM.APIURL,
		VisionModel:        d.LLM.VisionModel,
		ReasoningModel:     d.LLM.ReasoningModel,
		ReasoningTimeout:   d.LLM.ReasoningTimeout.String(),
		StrictSafety:       d.Safety.Strict,
		ConfidenceFloor:    strconv.FormatFloat(d.Safety.ConfidenceFloor, 'f', -1, 64),
		DisclaimerPosition: d.Safety.DisclaimerPosition,
		ServerAddr:         d.Server.Addr,
		RateLimitRPS:       strconv.FormatFloat(d.Server.RateLimitRPS, 'f', -1, 64),
		JournalEnabled:     d.Journal.Enabled,
		JournalDir:         d.Journal.Dir,
	}
}

// BuildConfig turns wizard answers into a validated configuration.
func BuildConfig(a Answers) (*config.Config, error) {
	cfg := config.Default()

	cfg.LLM.APIURL = strings.TrimSpace(a.APIURL)
	cfg.LLM.APIKey = strings.TrimSpace(a.APIKey)
	cfg.LLM.VisionModel = strings.TrimSpace(a.VisionModel)
	cfg.LLM.ReasoningModel = strings.TrimSpace(a.ReasoningModel)

	timeout, err := time.ParseDuration(strings.TrimSpace(a.ReasoningTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "reasoning timeout")
	}
	cfg.LLM.ReasoningTimeout = timeout
	if cfg.LLM.TotalTimeout < timeout+cfg.LLM.VisionTimeout {
		cfg.LLM.TotalTimeout = timeout + cfg.LLM.VisionTimeout
	}

	floor, err := strconv.ParseFloat(strings.TrimSpace(a.ConfidenceFloor), 64)
	if err != nil {
		return nil, errors.Wrap(err, "confidence floor")
	}
	cfg.Safety.Strict = a.StrictSafety
	cfg.Safety.ConfidenceFloor = floor
	cfg.Safety.DisclaimerPosition = a.DisclaimerPosition

	rps, err := strconv.ParseFloat(strings.TrimSpace(a.RateLimitRPS), 64)
	if err != nil {
		return nil, errors.Wrap(err, "rate limit")
	}
	cfg.Server.Addr = strings.TrimSpace(a.ServerAddr)
	cfg.Server.RateLimitRPS = rps

	cfg.Journal.Enabled = a.JournalEnabled
	cfg.Journal.Dir = strings.TrimSpace(a.JournalDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = config.DefaultPath
	}
	a := DefaultAnswers()
	var confirm bool

	// step 1: models
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHARTSENSE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 1: MODELS"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LLM API URL").
				Description("OpenAI-compatible chat completions endpoint").
				Value(&a.APIURL),
			huh.NewInput().
				Title("LLM API Key").
				Value(&a.APIKey).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("Vision Model").
				Value(&a.VisionModel).
				Validate(notBlank),
			huh.NewInput().
				Title("Reasoning Model").
				Value(&a.ReasoningModel).
				Validate(notBlank),
			huh.NewInput().
				Title("Reasoning Timeout").
				Description("e.g. 120s").
				Value(&a.ReasoningTimeout).
				Validate(validDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: safety
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHARTSENSE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: SAFETY"))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Strict Safety Mode").
				Description("Also flag unhedged predictions and certainty language").
				Value(&a.StrictSafety),
			huh.NewInput().
				Title("Confidence Floor").
				Description("Between 0.3 and 1").
				Value(&a.ConfidenceFloor).
				Validate(validFloor),
			huh.NewSelect[string]().
				Title("Disclaimer Position").
				Options(
					huh.NewOption("Bottom", "bottom"),
					huh.NewOption("Top", "top"),
					huh.NewOption("Both", "both"),
				).
				Value(&a.DisclaimerPosition),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: server
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHARTSENSE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: SERVER"))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Value(&a.ServerAddr).
				Validate(notBlank),
			huh.NewInput().
				Title("Rate Limit (requests/sec per client)").
				Description("0 disables limiting").
				Value(&a.RateLimitRPS).
				Validate(validNonNegative),
			huh.NewConfirm().
				Title("Journal Analyses").
				Value(&a.JournalEnabled),
			huh.NewInput().
				Title("Journal Directory").
				Value(&a.JournalDir),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHARTSENSE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(Summary(a)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return ErrCancelled
	}

	cfg, err := BuildConfig(a)
	if err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// Summary renders the answers for the confirmation step. The API key is never shown.
func Summary(a Answers) string {
	key := "not set"
	if a.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf(
		"Vision: %s\nReasoning: %s\nAPI key: %s\nStrict: %t\nFloor: %s\nServer: %s\n",
		a.VisionModel, a.ReasoningModel, key, a.StrictSafety, a.ConfidenceFloor, a.ServerAddr,
	)
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validDuration(s string) error {
	if _, err := time.ParseDuration(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a duration like 120s")
	}
	return nil
}

func validFloor(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if f < 0.3 || f > 1 {
		return fmt.Errorf("must be between 0.3 and 1")
	}
	return nil
}

func validNonNegative(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if f < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
