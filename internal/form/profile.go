package form

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/pose"
)

// ExerciseID uniquely identifies an exercise profile
type ExerciseID string

const (
	ExercisePlank         ExerciseID = "plank"
	ExercisePushup        ExerciseID = "pushup"
	ExerciseSquat         ExerciseID = "squat"
	ExercisePlankMidpoint ExerciseID = "plank_midpoint"
)

// ProgressMode selects how progress toward the target is measured
type ProgressMode int

const (
	ModeHoldDuration    ProgressMode = iota // Target is seconds of correct form
	ModeRepetitionCount                     // Target is contract/extend cycles
)

func (m ProgressMode) String() string {
	switch m {
	case ModeHoldDuration:
		return "HoldDuration"
	case ModeRepetitionCount:
		return "RepetitionCount"
	default:
		return "Unknown"
	}
}

// CountDirection selects what the displayed counter shows
type CountDirection int

const (
	CountDown CountDirection = iota // Counter starts at the target and reaches 0
	CountUp                         // Counter starts at 0 and reaches the target
)

func (d CountDirection) String() string {
	if d == CountUp {
		return "up"
	}
	return "down"
}

// ParseCountDirection accepts "up" or "down"
func ParseCountDirection(s string) (CountDirection, error) {
	switch s {
	case "down":
		return CountDown, nil
	case "up":
		return CountUp, nil
	default:
		return CountDown, fmt.Errorf("unknown count direction %q", s)
	}
}

// JointRole names a joint independently of the body side
type JointRole int

const (
	RoleShoulder JointRole = iota
	RoleElbow
	RoleWrist
	RoleHip
	RoleKnee
	RoleAnkle
)

func (r JointRole) String() string {
	switch r {
	case RoleShoulder:
		return "shoulder"
	case RoleElbow:
		return "elbow"
	case RoleWrist:
		return "wrist"
	case RoleHip:
		return "hip"
	case RoleKnee:
		return "knee"
	case RoleAnkle:
		return "ankle"
	default:
		return "unknown"
	}
}

// BodySide maps joint roles to the joints of one side of the body
type BodySide struct {
	Name   string
	Joints map[JointRole]pose.JointID
}

// Joint returns the joint for role on this side
func (s BodySide) Joint(role JointRole) pose.JointID {
	return s.Joints[role]
}

var (
	RightSide = BodySide{
		Name: "right",
		Joints: map[JointRole]pose.JointID{
			RoleShoulder: pose.JointRightShoulder,
			RoleElbow:    pose.JointRightElbow,
			RoleWrist:    pose.JointRightWrist,
			RoleHip:      pose.JointRightHip,
			RoleKnee:     pose.JointRightKnee,
			RoleAnkle:    pose.JointRightAnkle,
		},
	}
	LeftSide = BodySide{
		Name: "left",
		Joints: map[JointRole]pose.JointID{
			RoleShoulder: pose.JointLeftShoulder,
			RoleElbow:    pose.JointLeftElbow,
			RoleWrist:    pose.JointLeftWrist,
			RoleHip:      pose.JointLeftHip,
			RoleKnee:     pose.JointLeftKnee,
			RoleAnkle:    pose.JointLeftAnkle,
		},
	}
)

// AngleTriple is the angle A-Vertex-C measured at Vertex
type AngleTriple struct {
	A      JointRole
	Vertex JointRole
	C      JointRole
}

func (t AngleTriple) String() string {
	return fmt.Sprintf("%s-%s-%s", t.A, t.Vertex, t.C)
}

// PredicateKind selects the feature a predicate measures
type PredicateKind int

const (
	PredicateAngleAbove          PredicateKind = iota // angle(Joints[0..2]) > Threshold
	PredicateLineOffsetBelow                          // distance from Joints[0] to line Joints[1]-Joints[2] < Threshold
	PredicateMidpointOffsetBelow                      // |Joints[0].y - midpoint(Joints[1], Joints[2]).y| < Threshold
	PredicateNotElevated                              // Joints[0] not above Joints[1] by Threshold or more
	PredicateVerticalGapBelow                         // |Joints[0].y - Joints[1].y| < Threshold
)

// Predicate is one form rule. All predicates of a profile must hold for a Good verdict.
type Predicate struct {
	Name      string
	Kind      PredicateKind
	Joints    []JointRole
	Threshold float64
}

// ExerciseProfile is the immutable description of one exercise
type ExerciseProfile struct {
	ID          ExerciseID
	DisplayName string
	Mode        ProgressMode

	// Visibility: any side whose RequiredJoints are all above VisibilityThreshold
	Sides               []BodySide
	RequiredJoints      []JointRole
	VisibilityThreshold float64

	// Geometry
	PrimaryAngle AngleTriple
	Predicates   []Predicate

	// Repetition hysteresis band, degrees
	ContractAngle float64
	ExtendAngle   float64

	// Target
	BaseTarget     int // seconds for hold, repetitions for reps
	PenaltyPerUnit int
	Direction      CountDirection

	// Layout drawn by the synthetic pose source
	SyntheticShape pose.BodyShape
}

// Unit is the display unit of the target
func (p ExerciseProfile) Unit() string {
	if p.Mode == ModeHoldDuration {
		return "s"
	}
	return "reps"
}

// Clone returns a deep copy sharing no slices or maps with p
func (p ExerciseProfile) Clone() ExerciseProfile {
	p.Sides = lo.Map(p.Sides, func(side BodySide, _ int) BodySide {
		side.Joints = lo.Assign(side.Joints)
		return side
	})
	p.RequiredJoints = append([]JointRole(nil), p.RequiredJoints...)
	p.Predicates = lo.Map(p.Predicates, func(pred Predicate, _ int) Predicate {
		pred.Joints = append([]JointRole(nil), pred.Joints...)
		return pred
	})
	return p
}

// WithTarget returns a copy with a different base target and penalty
func (p ExerciseProfile) WithTarget(base, penaltyPerUnit int) ExerciseProfile {
	p = p.Clone()
	p.BaseTarget = base
	p.PenaltyPerUnit = penaltyPerUnit
	return p
}

// WithVisibilityThreshold returns a copy with a different visibility threshold
func (p ExerciseProfile) WithVisibilityThreshold(threshold float64) ExerciseProfile {
	p = p.Clone()
	p.VisibilityThreshold = threshold
	return p
}

// WithHysteresis returns a copy with a different contract/extend band
func (p ExerciseProfile) WithHysteresis(contract, extend float64) ExerciseProfile {
	p = p.Clone()
	p.ContractAngle = contract
	p.ExtendAngle = extend
	return p
}

// WithDirection returns a copy counting in the given direction
func (p ExerciseProfile) WithDirection(d CountDirection) ExerciseProfile {
	p = p.Clone()
	p.Direction = d
	return p
}

// Validate checks the profile is internally consistent
func (p ExerciseProfile) Validate() error {
	if len(p.Sides) == 0 {
		return fmt.Errorf("exercise %s: no body sides", p.ID)
	}
	if p.VisibilityThreshold < 0 || p.VisibilityThreshold >= 1 {
		return fmt.Errorf("exercise %s: visibility threshold %.2f out of [0,1)", p.ID, p.VisibilityThreshold)
	}
	if p.BaseTarget < 1 {
		return fmt.Errorf("exercise %s: base target must be at least 1", p.ID)
	}
	if p.PenaltyPerUnit < 0 {
		return fmt.Errorf("exercise %s: penalty per unit must not be negative", p.ID)
	}
	if p.Mode == ModeRepetitionCount && p.ContractAngle >= p.ExtendAngle {
		return fmt.Errorf("exercise %s: contract angle %.0f must be below extend angle %.0f", p.ID, p.ContractAngle, p.ExtendAngle)
	}
	for _, pred := range p.Predicates {
		if len(pred.Joints) < pred.Kind.arity() {
			return fmt.Errorf("exercise %s: predicate %s needs %d joints", p.ID, pred.Name, pred.Kind.arity())
		}
	}
	return nil
}

func (k PredicateKind) arity() int {
	switch k {
	case PredicateAngleAbove, PredicateLineOffsetBelow, PredicateMidpointOffsetBelow:
		return 3
	default:
		return 2
	}
}

// Form thresholds
const (
	PlankStraightnessMin  = 160.0
	PlankLineOffsetMax    = 0.05
	PlankMidpointMax      = 0.15
	PushupTorsoGapMax     = 0.15
	PlankVisibility       = 0.8
	DefaultRepVisibility  = 0.5
	PushupContractAngle   = 90.0
	PushupExtendAngle     = 160.0
	SquatContractAngle    = 100.0
	SquatExtendAngle      = 165.0
	PlankBaseSeconds      = 30
	PlankPenaltySeconds   = 3
	PushupBaseReps        = 14
	PushupPenaltyReps     = 1
	SquatBaseReps         = 25
	SquatPenaltyReps      = 2
	PlankMidpointBaseSecs = 60
)

var straightBody = AngleTriple{A: RoleShoulder, Vertex: RoleHip, C: RoleKnee}

// AllExercises is the registry of exercise profiles
var AllExercises = []ExerciseProfile{
	{
		ID:                  ExercisePlank,
		DisplayName:         "Plank",
		Mode:                ModeHoldDuration,
		Sides:               []BodySide{RightSide, LeftSide},
		RequiredJoints:      []JointRole{RoleShoulder, RoleElbow, RoleHip},
		VisibilityThreshold: PlankVisibility,
		PrimaryAngle:        straightBody,
		Predicates: []Predicate{
			{Name: "straight body", Kind: PredicateAngleAbove, Joints: []JointRole{RoleShoulder, RoleHip, RoleKnee}, Threshold: PlankStraightnessMin},
			{Name: "hip on shoulder-ankle line", Kind: PredicateLineOffsetBelow, Joints: []JointRole{RoleHip, RoleShoulder, RoleAnkle}, Threshold: PlankLineOffsetMax},
			{Name: "hip not piked", Kind: PredicateNotElevated, Joints: []JointRole{RoleHip, RoleShoulder}, Threshold: PlankLineOffsetMax},
		},
		BaseTarget:     PlankBaseSeconds,
		PenaltyPerUnit: PlankPenaltySeconds,
		Direction:      CountDown,
		SyntheticShape: pose.ShapePlank,
	},
	{
		ID:                  ExercisePushup,
		DisplayName:         "Push-up",
		Mode:                ModeRepetitionCount,
		Sides:               []BodySide{RightSide, LeftSide},
		RequiredJoints:      []JointRole{RoleShoulder, RoleElbow, RoleWrist},
		VisibilityThreshold: DefaultRepVisibility,
		PrimaryAngle:        AngleTriple{A: RoleShoulder, Vertex: RoleElbow, C: RoleWrist},
		Predicates: []Predicate{
			{Name: "level torso", Kind: PredicateVerticalGapBelow, Joints: []JointRole{RoleShoulder, RoleHip}, Threshold: PushupTorsoGapMax},
		},
		ContractAngle:  PushupContractAngle,
		ExtendAngle:    PushupExtendAngle,
		BaseTarget:     PushupBaseReps,
		PenaltyPerUnit: PushupPenaltyReps,
		Direction:      CountDown,
		SyntheticShape: pose.ShapePushup,
	},
	{
		ID:                  ExerciseSquat,
		DisplayName:         "Squat",
		Mode:                ModeRepetitionCount,
		Sides:               []BodySide{RightSide, LeftSide},
		RequiredJoints:      []JointRole{RoleShoulder, RoleHip, RoleKnee, RoleAnkle},
		VisibilityThreshold: DefaultRepVisibility,
		PrimaryAngle:        AngleTriple{A: RoleHip, Vertex: RoleKnee, C: RoleAnkle},
		ContractAngle:       SquatContractAngle,
		ExtendAngle:         SquatExtendAngle,
		BaseTarget:          SquatBaseReps,
		PenaltyPerUnit:      SquatPenaltyReps,
		Direction:           CountDown,
		SyntheticShape:      pose.ShapeSquat,
	},
	{
		ID:                  ExercisePlankMidpoint,
		DisplayName:         "Plank (midpoint check)",
		Mode:                ModeHoldDuration,
		Sides:               []BodySide{RightSide, LeftSide},
		RequiredJoints:      []JointRole{RoleShoulder, RoleHip, RoleAnkle},
		VisibilityThreshold: DefaultRepVisibility,
		PrimaryAngle:        straightBody,
		Predicates: []Predicate{
			{Name: "straight body", Kind: PredicateAngleAbove, Joints: []JointRole{RoleShoulder, RoleHip, RoleKnee}, Threshold: PlankStraightnessMin},
			{Name: "hip near midpoint", Kind: PredicateMidpointOffsetBelow, Joints: []JointRole{RoleHip, RoleShoulder, RoleAnkle}, Threshold: PlankMidpointMax},
		},
		BaseTarget:     PlankMidpointBaseSecs,
		PenaltyPerUnit: 0,
		Direction:      CountDown,
		SyntheticShape: pose.ShapePlank,
	},
}

// GetExerciseByID returns a copy of the registered profile for id
func GetExerciseByID(id ExerciseID) (ExerciseProfile, bool) {
	profile, ok := lo.Find(AllExercises, func(p ExerciseProfile) bool {
		return p.ID == id
	})
	if !ok {
		return ExerciseProfile{}, false
	}
	return profile.Clone(), true
}

// ExerciseIDs lists the registered ids in registry order
func ExerciseIDs() []ExerciseID {
	return lo.Map(AllExercises, func(p ExerciseProfile, _ int) ExerciseID {
		return p.ID
	})
}
