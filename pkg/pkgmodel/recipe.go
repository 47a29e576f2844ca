package pkgmodel

// BuildOptionKind distinguishes the two flavors of declared build
// option.
type BuildOptionKind int

const (
	// OptionPkg is a package dependency expressed as a var.
	OptionPkg BuildOptionKind = iota
	// OptionVar is a named option with a default and optional choices.
	OptionVar
)

// BuildOption is one option declared by a recipe's build section.
type BuildOption struct {
	Kind     BuildOptionKind
	Name     OptName
	Default  string
	Choices  []string
	Compat   *Compat
	Required bool
}

// Variant is a named combination of option overrides a recipe's build
// may be requested to produce.
type Variant struct {
	Name      string
	Overrides map[OptName]string
}

// BuildSpec is a recipe's build section.
type BuildSpec struct {
	Options    []BuildOption
	Variants   []Variant
	Script     []string
	Validation ValidationSpec
}

// ValidationRuleKind names one of the spec's built-in validation
// rules.
type ValidationRuleKind string

const (
	MustInstallSomething     ValidationRuleKind = "MustInstallSomething"
	MustNotAlterExistingFiles ValidationRuleKind = "MustNotAlterExistingFiles"
	MustCollectAllFiles      ValidationRuleKind = "MustCollectAllFiles"
)

// ValidationVerdict is the outcome of evaluating a validation rule
// against a subject path.
type ValidationVerdict int

const (
	Allowed ValidationVerdict = iota
	Denied
)

// ValidationRule pairs a rule kind with a verdict and the
// specificity/locality of the subject it applies to. More-specific
// Allowed rules override less-specific Denied rules regardless of
// declaration order.
type ValidationRule struct {
	Kind     ValidationRuleKind
	Verdict  ValidationVerdict
	Subject  string // path or glob the rule applies to
	Locality int    // higher = more specific; path depth is a natural measure
}

// ValidationSpec is the full set of rules a build's output must
// satisfy.
type ValidationSpec struct {
	Rules []ValidationRule
}

// Evaluate resolves the effective verdict for path by picking, among
// all rules whose Subject matches path, the one with the highest
// Locality; ties prefer Allowed over Denied (a conservative reading of
// "more-specific Allowed rules override less-specific Denied rules").
func (v ValidationSpec) Evaluate(path string, matches func(subject, path string) bool) ValidationVerdict {
	best := ValidationRule{Verdict: Allowed, Locality: -1}
	found := false
	for _, r := range v.Rules {
		if !matches(r.Subject, path) {
			continue
		}
		if !found || r.Locality > best.Locality || (r.Locality == best.Locality && r.Verdict == Allowed) {
			best = r
			found = true
		}
	}
	if !found {
		return Allowed
	}
	return best.Verdict
}

// InstallSpec is a recipe's install section.
type InstallSpec struct {
	Requirements []PkgRequest
	Embedded     []VersionIdent
	Components   []Component
	Environment  map[string]string
}

// SourceEntry is one entry in a recipe's `sources:` list (
// "Source build").
type SourceEntry struct {
	Kind   SourceKind
	Local  string // Kind == SourceLocal
	Git    GitSource
	Tar    string // Kind == SourceTar, local or remote archive path
	Script []string
	Subdir string
}

type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceGit
	SourceTar
	SourceScript
)

// GitSource describes a git-backed source entry, cloned via go-git.
type GitSource struct {
	URL string
	Ref string
}

// Recipe is the full definition of a buildable package (
// "Recipe / Package").
type Recipe struct {
	Ident   VersionIdent
	Compat  Compat
	Sources []SourceEntry
	Build   BuildSpec
	Tests   []TestStage
	Install InstallSpec
}

// TestStageKind names one of the three test stages.
type TestStageKind string

const (
	TestSources TestStageKind = "sources"
	TestBuild   TestStageKind = "build"
	TestInstall TestStageKind = "install"
)

// TestStage is one named test the publish pipeline may run.
type TestStage struct {
	Kind   TestStageKind
	Script []string
}

// Package is a published, concrete build of a Recipe.
type Package struct {
	Ident       BuildIdent
	Options     *OptionMap
	Install     InstallSpec
	Embedded    []VersionIdent
	Deprecated  bool
}

// Source describes where a SolvedRequest's package came from (
// "Solution").
type SourceKindEnum int

const (
	SourceRepository SourceKindEnum = iota
	SourceBuildFromSource
	SourceEmbeddedParent
	SourceSpkInternalTest
)

// SolvedSource carries the source-kind-specific payload.
type SolvedSource struct {
	Kind       SourceKindEnum
	Repository string
	Components []ComponentName
	Recipe     *Recipe
	Parent     *BuildIdent
}

// SolvedRequest is one entry in a Solution's resolved list.
type SolvedRequest struct {
	Request PkgRequest
	Spec    Package
	Source  SolvedSource
}

// Solution is the ordered output of a solve.
type Solution struct {
	Options  *OptionMap
	Resolved []SolvedRequest
}
