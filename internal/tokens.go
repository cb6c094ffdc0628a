package internal

// Token estimation prices a message's fragments against a model profile for
// context budgeting. Estimates are approximate unless the profile supplies
// an exact counter; estimation never fails and never blocks persistence.

const (
	// messageGlueTokens approximates per-message encoding overhead.
	messageGlueTokens = 4
	// fragmentGlueTokens approximates the joint between two fragments.
	fragmentGlueTokens = 2
	// thumbnailDim is assumed for assistant-embedded images whose exact
	// dimensions are not tracked; assistants downsize images before
	// re-embedding them in follow-up turns.
	thumbnailDim = 384
)

// ModelProfile describes the pricing-relevant properties of a model. The
// model registry resolves model identifiers to profiles; the estimator
// depends on nothing vendor-specific.
type ModelProfile struct {
	Name          string
	ContextWindow int

	// ImageTokens converts pixel dimensions to a token cost. Nil selects
	// the default sizing.
	ImageTokens func(width, height int) int

	// CountTokens is the exact tokenizer path. Nil selects the chars/4
	// heuristic.
	CountTokens func(text string) int
}

// DefaultProfile is used when no model was resolved.
var DefaultProfile = &ModelProfile{
	Name:          "default",
	ContextWindow: 128000,
}

// builtinProfiles is the local stand-in for the model registry.
var builtinProfiles = map[string]*ModelProfile{
	"default": DefaultProfile,
	"compact": {Name: "compact", ContextWindow: 32000},
}

// ResolveProfile returns the profile for a model identifier, falling back
// to the default profile for unknown models.
func ResolveProfile(model string) *ModelProfile {
	if p, ok := builtinProfiles[model]; ok {
		return p
	}
	return DefaultProfile
}

// countText prices plain text, preferring the profile's exact tokenizer.
func countText(p *ModelProfile, text string) int {
	if text == "" {
		return 0
	}
	if p.CountTokens != nil {
		if n := p.CountTokens(text); n >= 0 {
			return n
		}
	}
	return (len(text) + 3) / 4
}

// countImage prices an image by its pixel dimensions. Zero dimensions on an
// assistant turn assume a fixed thumbnail; on other turns the image is
// priced at the thumbnail floor as well, since no better signal exists.
func countImage(p *ModelProfile, role Role, width, height int) int {
	if width <= 0 || height <= 0 {
		width, height = thumbnailDim, thumbnailDim
		if role != RoleAssistant {
			LogDebug("image without tracked dimensions priced as %dx%d thumbnail", thumbnailDim, thumbnailDim)
		}
	}
	if p.ImageTokens != nil {
		if n := p.ImageTokens(width, height); n >= 0 {
			return n
		}
	}
	// Rough px-per-token divisor shared by current vision models.
	return (width*height + 749) / 750
}

// countPart prices a single part. Unknown shapes cost zero and emit a
// developer-visible warning; estimation never throws.
func countPart(p *ModelProfile, role Role, part Part) int {
	switch v := part.(type) {
	case *TextPart:
		return countText(p, v.Text)
	case *ErrorPart:
		return countText(p, v.Error) + countText(p, v.Hint)
	case *DocPart:
		return countText(p, v.Data) + countText(p, v.Title)
	case *ToolInvocationPart:
		return countText(p, v.Name) + countText(p, v.Args)
	case *ToolResponsePart:
		return countText(p, v.Response) + countText(p, v.Error)
	case *ImageRefPart:
		return countImage(p, role, v.Width, v.Height)
	case *ReferencePart:
		if v.LegacyImage != nil {
			return countImage(p, role, v.LegacyImage.Width, v.LegacyImage.Height)
		}
		// An asset reference without tracked dimensions.
		return countImage(p, role, 0, 0)
	default:
		LogWarn("token estimator: unsupported part shape %q costs 0", part.PartType())
		return 0
	}
}

// EstimateTokens prices a fragment list for the given role against a model
// profile. Void fragments contribute nothing. The result is always >= 0 and
// appending a fragment never decreases it.
func EstimateTokens(profile *ModelProfile, role Role, fragments []*Fragment) int {
	if profile == nil {
		profile = DefaultProfile
	}
	total := 0
	counted := 0
	for _, f := range fragments {
		if f == nil || f.Part == nil || f.Kind == FragmentKindVoid {
			continue
		}
		if counted > 0 {
			total += fragmentGlueTokens
		}
		total += countPart(profile, role, f.Part)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return messageGlueTokens + total
}
