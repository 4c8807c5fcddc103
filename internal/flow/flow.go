package flow

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"ddfeed/internal/components/assert"
	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/document"
	"ddfeed/internal/extract"
	"ddfeed/internal/scrapers/doordash"
)

const (
	report_flow_run  = "flow.run"
	report_flow_sink = "flow.sink"
)

// GeneralFeedLabel labels the records of the fallback feed.
const GeneralFeedLabel = "General Feed"

const defaultLanguage = "en-US"

// step names
const (
	StepHealthCheck         = "health-check"
	StepCreateGuest         = "create-guest"
	StepExperiments         = "experiments"
	StepRegisterDevice      = "register-device"
	StepPrivacyConsents     = "privacy-consents"
	StepProfile             = "profile"
	StepUpdateLanguage      = "update-language"
	StepListAddresses       = "list-addresses"
	StepAutocompleteAddress = "autocomplete-address"
	StepAddressDetails      = "address-details"
	StepValidateAddress     = "validate-address"
	StepAddAddress          = "add-address"
	StepSetDefaultAddress   = "set-default-address"
	StepHomepageFeed        = "homepage-feed"
	StepFindSectionToken    = "find-section-token"
	StepSectionFeed         = "section-feed"
	StepGeneralFeed         = "general-feed"
	StepExtractRecords      = "extract-records"
)

// Remote is the backend a flow runs against, *doordash.Client implements it.
type Remote interface {
	HealthCheck(ctx context.Context, s doordash.Session) error
	CreateGuest(ctx context.Context, s doordash.Session) (string, error)

	Experiments(ctx context.Context, s doordash.Session) error
	RegisterDevice(ctx context.Context, s doordash.Session) error
	PrivacyConsents(ctx context.Context, s doordash.Session) error
	Profile(ctx context.Context, s doordash.Session) error
	UpdateLanguage(ctx context.Context, s doordash.Session, language string) error

	ListAddresses(ctx context.Context, s doordash.Session) error
	Autocomplete(ctx context.Context, s doordash.Session, query string) (string, error)
	AddressDetails(ctx context.Context, s doordash.Session, placeId string) (doordash.Coordinates, error)
	ValidateAddress(ctx context.Context, s doordash.Session, placeId string) error
	AddAddress(ctx context.Context, s doordash.Session, placeId string) (string, error)
	SetDefaultAddress(ctx context.Context, s doordash.Session, addressId string) error

	HomepageFeed(ctx context.Context, s doordash.Session, coords doordash.Coordinates) (document.Node, error)
	Feed(ctx context.Context, s doordash.Session, coords doordash.Coordinates, token extract.SectionToken) (document.Node, error)
}

// Sink persists the documents and records a flow produced.
type Sink interface {
	SaveDocument(name string, doc document.Node) error
	SaveRecords(name string, records []extract.StoreRecord) error
}

type Options struct {
	// SectionTitle is the title of the section to look for, "Now on DoorDash"
	// when empty.
	SectionTitle string
	// Match overrides the title predicate, by default a title matches when
	// it contains SectionTitle.
	Match extract.TitlePredicate
	// Onboarding runs the calls the app makes right after creating a guest.
	Onboarding bool
	// SkipHealthCheck leaves out the initial health probe.
	SkipHealthCheck bool
	// LenientSetDefault tolerates any failure of the set default address
	// step, not only a 404.
	LenientSetDefault bool
	// Sink is optional.
	Sink Sink
}

// Result is everything a run produced.
type Result struct {
	Records []extract.StoreRecord
	Label   string
	// SectionFound is true when the records come from the section feed.
	SectionFound bool
	Token        extract.SectionToken
	Home         document.Node
	Feed         document.Node
	Steps        []StepResult
	State        SessionState
}

type Flow struct {
	remote Remote
	opts   Options
	tel    telemetry.API
}

func New(remote Remote, opts Options, tel telemetry.API) *Flow {
	assert.NotNil(remote)
	assert.NotNil(tel)

	if opts.SectionTitle == "" {
		opts.SectionTitle = extract.DefaultSectionTitle
	}
	if opts.Match == nil {
		opts.Match = extract.TitleContains(opts.SectionTitle)
	}

	return &Flow{
		remote: remote,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("flow", tel),
	}
}

// Run performs the whole guest session for the address query and returns
// the records of the section, or of the general feed when the section could
// not be found. The only error returned is a *SequenceAbort, in which case
// the Result still holds what was gathered up to the failing step.
func (f *Flow) Run(ctx context.Context, addressQuery string) (Result, error) {
	f.tel.ReportDebug(report_flow_run, addressQuery)

	state := NewSessionState()
	executor := NewExecutor(f.Steps(addressQuery), f.opts.LenientSetDefault, f.tel)
	steps, err := executor.Run(ctx, state)

	f.persist(state)

	result := Result{
		Records:      state.Records,
		Label:        state.FeedLabel,
		SectionFound: state.TokenFound && state.FeedLabel == f.opts.SectionTitle,
		Token:        state.Token,
		Home:         state.Home,
		Feed:         state.Feed,
		Steps:        steps,
		State:        *state,
	}
	if err != nil {
		f.tel.ReportWarning(report_flow_run, err)
		return result, err
	}
	f.tel.ReportCount(report_flow_run, int64(len(state.Records)))
	return result, nil
}

// Steps returns the ordered steps of a run for the address query.
func (f *Flow) Steps(addressQuery string) []Step {
	onboarding := func(*SessionState) bool {
		return f.opts.Onboarding
	}

	return []Step{
		{
			Name:   StepHealthCheck,
			Policy: Continue,
			When: func(*SessionState) bool {
				return !f.opts.SkipHealthCheck
			},
			Execute: func(ctx context.Context, state SessionState) Outcome {
				return FromErr(f.remote.HealthCheck(ctx, state.Session()))
			},
		},
		{
			Name:   StepCreateGuest,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				credential, err := f.remote.CreateGuest(ctx, state.Session())
				if err != nil {
					return Failure(err)
				}
				return Success(credential)
			},
			Apply: func(state *SessionState, value any) {
				state.credential = value.(string)
			},
		},
		onboardingStep(StepExperiments, onboarding, f.remote.Experiments),
		onboardingStep(StepRegisterDevice, onboarding, f.remote.RegisterDevice),
		onboardingStep(StepPrivacyConsents, onboarding, f.remote.PrivacyConsents),
		onboardingStep(StepProfile, onboarding, f.remote.Profile),
		onboardingStep(StepUpdateLanguage, onboarding, func(ctx context.Context, s doordash.Session) error {
			return f.remote.UpdateLanguage(ctx, s, defaultLanguage)
		}),
		{
			Name:   StepListAddresses,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				state.Credential()
				return FromErr(f.remote.ListAddresses(ctx, state.Session()))
			},
		},
		{
			Name:   StepAutocompleteAddress,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				state.Credential()
				placeId, err := f.remote.Autocomplete(ctx, state.Session(), addressQuery)
				if err != nil {
					return Failure(err)
				}
				return Success(placeId)
			},
			Apply: func(state *SessionState, value any) {
				state.placeId = value.(string)
			},
		},
		{
			Name:   StepAddressDetails,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				coords, err := f.remote.AddressDetails(ctx, state.Session(), state.RequirePlaceId())
				if err != nil {
					return Failure(err)
				}
				return Success(coords)
			},
			Apply: func(state *SessionState, value any) {
				coords := value.(doordash.Coordinates)
				state.coords = &coords
			},
		},
		{
			Name:   StepValidateAddress,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				return FromErr(f.remote.ValidateAddress(ctx, state.Session(), state.RequirePlaceId()))
			},
		},
		{
			Name:   StepAddAddress,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				addressId, err := f.remote.AddAddress(ctx, state.Session(), state.RequirePlaceId())
				if err != nil {
					return Failure(err)
				}
				return Success(addressId)
			},
			Apply: func(state *SessionState, value any) {
				state.addressId = value.(string)
			},
		},
		{
			Name:   StepSetDefaultAddress,
			Policy: ContinueWithWarning,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				return FromErr(f.remote.SetDefaultAddress(ctx, state.Session(), state.RequireAddressId()))
			},
		},
		{
			Name:   StepHomepageFeed,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				session, coords := state.requireFeedPrerequisites()
				home, err := f.remote.HomepageFeed(ctx, session, coords)
				if err != nil {
					return Failure(err)
				}
				return Success(home)
			},
			Apply: func(state *SessionState, value any) {
				state.Home = value.(document.Node)
			},
		},
		{
			Name:   StepFindSectionToken,
			Policy: Continue,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				assert.NotNil(state.Home)
				token, found := extract.FindToken(state.Home, f.opts.Match)
				if !found {
					f.tel.ReportDebug(report_flow_run, "section not found", f.opts.SectionTitle)
				}
				return Success(tokenLookup{token: token, found: found})
			},
			Apply: func(state *SessionState, value any) {
				lookup := value.(tokenLookup)
				state.Token = lookup.token
				state.TokenFound = lookup.found
			},
		},
		{
			Name:   StepSectionFeed,
			Policy: Continue,
			When: func(state *SessionState) bool {
				return state.TokenFound
			},
			Execute: func(ctx context.Context, state SessionState) Outcome {
				session, coords := state.requireFeedPrerequisites()
				feed, err := f.remote.Feed(ctx, session, coords, state.Token)
				if err != nil {
					return Failure(err)
				}
				return Success(feed)
			},
			Apply: func(state *SessionState, value any) {
				state.Feed = value.(document.Node)
				state.FeedLabel = f.opts.SectionTitle
			},
		},
		{
			Name:   StepGeneralFeed,
			Policy: Abort,
			When: func(state *SessionState) bool {
				return state.Feed == nil
			},
			Execute: func(ctx context.Context, state SessionState) Outcome {
				session, coords := state.requireFeedPrerequisites()
				feed, err := f.remote.Feed(ctx, session, coords, extract.DefaultToken())
				if err != nil {
					return Failure(err)
				}
				return Success(feed)
			},
			Apply: func(state *SessionState, value any) {
				state.Feed = value.(document.Node)
				state.FeedLabel = GeneralFeedLabel
			},
		},
		{
			Name:   StepExtractRecords,
			Policy: Abort,
			Execute: func(ctx context.Context, state SessionState) Outcome {
				assert.NotNil(state.Feed)
				return Success(extract.ExtractRecords(state.Feed, state.FeedLabel))
			},
			Apply: func(state *SessionState, value any) {
				state.Records = value.([]extract.StoreRecord)
			},
		},
	}
}

type tokenLookup struct {
	token extract.SectionToken
	found bool
}

func onboardingStep(
	name string,
	when func(*SessionState) bool,
	call func(ctx context.Context, s doordash.Session) error,
) Step {
	return Step{
		Name:   name,
		Policy: Continue,
		When:   when,
		Execute: func(ctx context.Context, state SessionState) Outcome {
			state.Credential()
			return FromErr(call(ctx, state.Session()))
		},
	}
}

// persist hands whatever the run produced to the sink. Failing to persist
// does not fail the run.
func (f *Flow) persist(state *SessionState) {
	if f.opts.Sink == nil {
		return
	}

	save := func(name string, err error) {
		if err != nil {
			f.tel.ReportWarning(report_flow_sink, fmt.Errorf("save %s: %w", name, err))
		}
	}

	if state.Home != nil {
		save(HomepageName, f.opts.Sink.SaveDocument(HomepageName, state.Home))
	}
	if state.Feed == nil {
		return
	}
	feedName, recordsName := ArtifactNames(state.FeedLabel)
	save(feedName, f.opts.Sink.SaveDocument(feedName, state.Feed))
	if state.Records != nil {
		save(recordsName, f.opts.Sink.SaveRecords(recordsName, state.Records))
	}
}

const HomepageName = "homepage_feed"

// ArtifactNames returns the names the feed document and the records of a
// feed with the given label are saved under.
func ArtifactNames(label string) (feed string, records string) {
	if label == GeneralFeedLabel {
		return "general_content_feed", "general_stores"
	}
	slug := Slug(label)
	return slug + "_feed", slug + "_stores"
}

// Slug lowercases the label and joins its words with underscores.
func Slug(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "section"
	}
	return strings.Join(fields, "_")
}
