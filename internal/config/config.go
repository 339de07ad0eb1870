package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

const (
	EnvPrefix = "FORM_TRAINER"

	SourceSynthetic = "synthetic"
	SourceReplay    = "replay"

	DefaultFrameRate   = 15.0
	DefaultGracePeriod = 2 * time.Second
	DefaultCyclePeriod = 3 * time.Second
)

// ErrHelp is returned by Load when --help was requested
var ErrHelp = pflag.ErrHelp

// Config is the application configuration after flags, environment and config file are merged
type Config struct {
	Exercise    string        `mapstructure:"exercise" validate:"exerciseid,required_if=Headless true"`
	WrongCount  string        `mapstructure:"wrong_count"`
	Source      string        `mapstructure:"source" validate:"oneof=synthetic replay"`
	ReplayPath  string        `mapstructure:"replay" validate:"required_if=Source replay"`
	Posture     string        `mapstructure:"posture" validate:"posture"`
	CyclePeriod time.Duration `mapstructure:"cycle_period" validate:"gt=0"`
	ControlPort int           `mapstructure:"control_port" validate:"min=0,max=65535"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	LogFile     string        `mapstructure:"log_file"`
	LogCompress bool          `mapstructure:"log_compress"`
	LogStderr   bool          `mapstructure:"log_stderr"`
	StateFile   string        `mapstructure:"state_file"`
	Headless    bool          `mapstructure:"headless"`
	FrameRate   float64       `mapstructure:"frame_rate" validate:"gt=0,lte=120"`
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
	Direction   string        `mapstructure:"direction" validate:"omitempty,oneof=down up"`

	Exercises map[string]ExerciseOverride `mapstructure:"exercises" validate:"dive,keys,exerciseid,endkeys"`
}

// ExerciseOverride replaces selected profile values for one exercise
type ExerciseOverride struct {
	BaseTarget          *int     `mapstructure:"base_target" validate:"omitempty,gt=0"`
	PenaltyPerUnit      *int     `mapstructure:"penalty_per_unit" validate:"omitempty,gte=0"`
	VisibilityThreshold *float64 `mapstructure:"visibility_threshold" validate:"omitempty,gt=0,lt=1"`
	ContractAngle       *float64 `mapstructure:"contract_angle" validate:"omitempty,gt=0,lt=180"`
	ExtendAngle         *float64 `mapstructure:"extend_angle" validate:"omitempty,gt=0,lte=180"`
	Direction           string   `mapstructure:"direction" validate:"omitempty,oneof=down up"`
}

type flagBinding struct {
	key  string
	flag string
}

var bindings = []flagBinding{
	{"exercise", "exercise"},
	{"wrong_count", "wrong-count"},
	{"source", "source"},
	{"replay", "replay"},
	{"posture", "posture"},
	{"cycle_period", "cycle-period"},
	{"control_port", "control-port"},
	{"metrics_addr", "metrics-addr"},
	{"log_file", "log-file"},
	{"log_compress", "log-compress"},
	{"log_stderr", "log-stderr"},
	{"state_file", "state-file"},
	{"headless", "headless"},
	{"frame_rate", "frame-rate"},
	{"grace_period", "grace-period"},
	{"direction", "direction"},
}

// NewFlagSet declares the command line flags
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.StringP("exercise", "e", "", "exercise id: "+strings.Join(exerciseIDStrings(), ", ")+" (empty opens the selection screen)")
	fs.String("wrong-count", "", "number of wrong quiz answers; the first positional argument works too")
	fs.String("source", SourceSynthetic, "pose source: synthetic or replay")
	fs.String("replay", "", "JSON Lines landmark recording for --source replay")
	fs.String("posture", string(pose.PostureCycle), "initial synthetic posture: cycle, good, bad or hidden")
	fs.Duration("cycle-period", DefaultCyclePeriod, "duration of one synthetic movement")
	fs.Int("control-port", 8090, "synthetic source control page port (0 disables)")
	fs.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9102")
	fs.String("log-file", "", "log file (default ~/.form-trainer/form-trainer.log)")
	fs.Bool("log-compress", false, "gzip rotated log files")
	fs.Bool("log-stderr", false, "also write the log to stderr in --headless mode")
	fs.String("state-file", "", "where the last exercise and completed sessions are kept (default ~/.form-trainer/ui_state.json, - to disable)")
	fs.Bool("headless", false, "run without the terminal UI and print a progress bar")
	fs.Float64("frame-rate", DefaultFrameRate, "frames evaluated per second")
	fs.Duration("grace-period", DefaultGracePeriod, "time the completion screen stays up before exit")
	fs.String("direction", "", "override the counter direction of rep exercises: down or up")
	return fs
}

// Load parses args and merges the config file and FORM_TRAINER_* environment
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("form-trainer")
	args, negatives := splitNegativeCounts(fs, args)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if len(negatives) > 0 && fs.NArg() == 0 && !fs.Changed("wrong-count") {
		// coerced to 0 by PenaltyCount
		if err := fs.Set("wrong-count", negatives[0]); err != nil {
			return nil, fmt.Errorf("set wrong count: %w", err)
		}
	}
	return FromFlags(fs)
}

var negativeNumber = regexp.MustCompile(`^-[0-9]+(\.[0-9]+)?$`)

// splitNegativeCounts pulls negative numbers given as positional arguments out
// of args, so pflag does not read "-2" as a shorthand flag. A negative number
// that is the value of the preceding flag stays in place.
func splitNegativeCounts(fs *pflag.FlagSet, args []string) (rest, negatives []string) {
	rest = make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(rest, args[i:]...), negatives
		}
		if negativeNumber.MatchString(arg) && (i == 0 || !takesValue(fs, args[i-1])) {
			negatives = append(negatives, arg)
			continue
		}
		rest = append(rest, arg)
	}
	return rest, negatives
}

// takesValue reports whether arg is a flag that consumes the next argument
func takesValue(fs *pflag.FlagSet, arg string) bool {
	if !strings.HasPrefix(arg, "-") || strings.Contains(arg, "=") {
		return false
	}
	var flag *pflag.Flag
	switch {
	case strings.HasPrefix(arg, "--"):
		flag = fs.Lookup(arg[2:])
	case len(arg) == 2:
		flag = fs.ShorthandLookup(arg[1:])
	}
	return flag != nil && flag.NoOptDefVal == ""
}

// FromFlags builds the configuration from an already parsed flag set
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		if err := v.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs.NArg() > 0 && !fs.Changed("wrong-count") {
		v.Set("wrong_count", fs.Arg(0))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the decoded configuration
func Validate(cfg *Config) error {
	if err := NewValidator().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("exerciseid", exerciseID)
	validate.RegisterValidation("posture", postureName)
	return validate
}

func exerciseID(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	_, ok := form.GetExerciseByID(form.ExerciseID(val))
	return ok
}

func postureName(fl validator.FieldLevel) bool {
	_, ok := pose.ParsePosture(fl.Field().String())
	return ok
}

// StateFileDisabled as --state-file keeps the selection and history in memory only
const StateFileDisabled = "-"

// PenaltyCount is the parsed wrong answer count, 0 for anything unusable
func (c *Config) PenaltyCount() int {
	return form.ParsePenaltyCount(c.WrongCount)
}

// FrameInterval is the tick period derived from FrameRate
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// Profile returns the registered profile for id with overrides applied
func (c *Config) Profile(id form.ExerciseID) (form.ExerciseProfile, error) {
	profile, ok := form.GetExerciseByID(id)
	if !ok {
		return form.ExerciseProfile{}, fmt.Errorf("unknown exercise %q", id)
	}

	if c.Direction != "" && profile.Mode == form.ModeRepetitionCount {
		d, err := form.ParseCountDirection(c.Direction)
		if err != nil {
			return form.ExerciseProfile{}, err
		}
		profile = profile.WithDirection(d)
	}

	if o, ok := c.Exercises[string(id)]; ok {
		var err error
		if profile, err = o.apply(profile); err != nil {
			return form.ExerciseProfile{}, fmt.Errorf("exercise %s: %w", id, err)
		}
	}

	if err := profile.Validate(); err != nil {
		return form.ExerciseProfile{}, err
	}
	return profile, nil
}

// Profiles returns every registered profile with overrides applied, in registry order
func (c *Config) Profiles() ([]form.ExerciseProfile, error) {
	profiles := make([]form.ExerciseProfile, 0, len(form.AllExercises))
	for _, id := range form.ExerciseIDs() {
		p, err := c.Profile(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (o ExerciseOverride) apply(p form.ExerciseProfile) (form.ExerciseProfile, error) {
	base, penalty := p.BaseTarget, p.PenaltyPerUnit
	if o.BaseTarget != nil {
		base = *o.BaseTarget
	}
	if o.PenaltyPerUnit != nil {
		penalty = *o.PenaltyPerUnit
	}
	p = p.WithTarget(base, penalty)

	if o.VisibilityThreshold != nil {
		p = p.WithVisibilityThreshold(*o.VisibilityThreshold)
	}

	contract, extend := p.ContractAngle, p.ExtendAngle
	if o.ContractAngle != nil {
		contract = *o.ContractAngle
	}
	if o.ExtendAngle != nil {
		extend = *o.ExtendAngle
	}
	p = p.WithHysteresis(contract, extend)

	if o.Direction != "" {
		d, err := form.ParseCountDirection(o.Direction)
		if err != nil {
			return p, err
		}
		p = p.WithDirection(d)
	}
	return p, nil
}

func exerciseIDStrings() []string {
	ids := form.ExerciseIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
