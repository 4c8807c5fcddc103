package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/document"
	"ddfeed/internal/extract"
	"ddfeed/internal/scrapers/doordash"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	calls       []string
	credentials []string

	healthErr     error
	guestErr      error
	onboardingErr error
	setDefaultErr error
	sectionErr    error
	generalErr    error

	home        document.Node
	sectionFeed document.Node
	generalFeed document.Node
}

func (f *fakeRemote) record(call string, s doordash.Session) {
	f.calls = append(f.calls, call)
	f.credentials = append(f.credentials, s.Credential)
}

func (f *fakeRemote) HealthCheck(ctx context.Context, s doordash.Session) error {
	f.record("health", s)
	return f.healthErr
}

func (f *fakeRemote) CreateGuest(ctx context.Context, s doordash.Session) (string, error) {
	f.record("guest", s)
	if f.guestErr != nil {
		return "", f.guestErr
	}
	return "guest-jwt", nil
}

func (f *fakeRemote) Experiments(ctx context.Context, s doordash.Session) error {
	f.record("experiments", s)
	return f.onboardingErr
}

func (f *fakeRemote) RegisterDevice(ctx context.Context, s doordash.Session) error {
	f.record("register-device", s)
	return f.onboardingErr
}

func (f *fakeRemote) PrivacyConsents(ctx context.Context, s doordash.Session) error {
	f.record("privacy-consents", s)
	return f.onboardingErr
}

func (f *fakeRemote) Profile(ctx context.Context, s doordash.Session) error {
	f.record("profile", s)
	return f.onboardingErr
}

func (f *fakeRemote) UpdateLanguage(ctx context.Context, s doordash.Session, language string) error {
	f.record("update-language:"+language, s)
	return f.onboardingErr
}

func (f *fakeRemote) ListAddresses(ctx context.Context, s doordash.Session) error {
	f.record("list-addresses", s)
	return nil
}

func (f *fakeRemote) Autocomplete(ctx context.Context, s doordash.Session, query string) (string, error) {
	f.record("autocomplete:"+query, s)
	return "place-1", nil
}

func (f *fakeRemote) AddressDetails(ctx context.Context, s doordash.Session, placeId string) (doordash.Coordinates, error) {
	f.record("details:"+placeId, s)
	return doordash.Coordinates{Lat: 40.7, Lng: -74}, nil
}

func (f *fakeRemote) ValidateAddress(ctx context.Context, s doordash.Session, placeId string) error {
	f.record("validate:"+placeId, s)
	return nil
}

func (f *fakeRemote) AddAddress(ctx context.Context, s doordash.Session, placeId string) (string, error) {
	f.record("add:"+placeId, s)
	return "addr-9", nil
}

func (f *fakeRemote) SetDefaultAddress(ctx context.Context, s doordash.Session, addressId string) error {
	f.record("set-default:"+addressId, s)
	return f.setDefaultErr
}

func (f *fakeRemote) HomepageFeed(ctx context.Context, s doordash.Session, coords doordash.Coordinates) (document.Node, error) {
	f.record("homepage", s)
	return f.home, nil
}

func (f *fakeRemote) Feed(ctx context.Context, s doordash.Session, coords doordash.Coordinates, token extract.SectionToken) (document.Node, error) {
	if token == extract.DefaultToken() {
		f.record("feed:default", s)
		return f.generalFeed, f.generalErr
	}
	f.record("feed:"+string(token), s)
	return f.sectionFeed, f.sectionErr
}

type memorySink struct {
	documents map[string]document.Node
	records   map[string][]extract.StoreRecord
}

func newMemorySink() *memorySink {
	return &memorySink{
		documents: map[string]document.Node{},
		records:   map[string][]extract.StoreRecord{},
	}
}

func (m *memorySink) SaveDocument(name string, doc document.Node) error {
	m.documents[name] = doc
	return nil
}

func (m *memorySink) SaveRecords(name string, records []extract.StoreRecord) error {
	m.records[name] = records
	return nil
}

func mustParse(t *testing.T, raw string) document.Node {
	t.Helper()
	doc, err := document.Parse([]byte(raw))
	require.NoError(t, err)
	return doc
}

const homeWithSection = `{"body": [
	{"text": {"title": "Deals"}, "events": {"click": {"data": {"uri": "facet_feed/deals/"}}}},
	{"text": {"title": "Now on DoorDash"}, "events": {"click": {"data": {"uri": "facet_feed/abc123/"}}}}
]}`

const homeWithoutSection = `{"body": [{"text": {"title": "Deals"}}]}`

const sectionFeed = `{"body": [
	{"text": {"title": "Pizza Place"}, "custom": {"rating": 4.5}},
	{"text": {"title": "pizza place"}}
]}`

const generalFeed = `[{"text": {"title": "Taco Town"}}]`

func newFakeRemote(t *testing.T, home string) *fakeRemote {
	return &fakeRemote{
		home:        mustParse(t, home),
		sectionFeed: mustParse(t, sectionFeed),
		generalFeed: mustParse(t, generalFeed),
	}
}

func outcomes(steps []StepResult) map[string]string {
	out := map[string]string{}
	for _, s := range steps {
		out[s.Name] = s.Outcome
	}
	return out
}

func names(records []extract.StoreRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestRunSectionFound(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	sink := newMemorySink()
	rec := &telemetry.Recorder{}

	result, err := New(remote, Options{Sink: sink}, rec).Run(context.Background(), "New York, NY")
	require.NoError(t, err)

	expectedCalls := []string{
		"health",
		"guest",
		"list-addresses",
		"autocomplete:New York, NY",
		"details:place-1",
		"validate:place-1",
		"add:place-1",
		"set-default:addr-9",
		"homepage",
		"feed:abc123",
	}
	require.Empty(t, cmp.Diff(expectedCalls, remote.calls))

	require.Equal(t, "", remote.credentials[0])
	require.Equal(t, "", remote.credentials[1])
	for _, credential := range remote.credentials[2:] {
		require.Equal(t, "guest-jwt", credential)
	}

	require.True(t, result.SectionFound)
	require.Equal(t, extract.SectionToken("abc123"), result.Token)
	require.Equal(t, extract.DefaultSectionTitle, result.Label)
	require.Equal(t, []string{"Pizza Place"}, names(result.Records))
	require.Equal(t, extract.DefaultSectionTitle, result.Records[0].SourceLabel)

	steps := outcomes(result.Steps)
	require.Equal(t, OutcomeSkipped, steps[StepGeneralFeed])
	require.Equal(t, OutcomeSkipped, steps[StepExperiments])
	require.Equal(t, OutcomeSuccess, steps[StepSectionFeed])
	require.Equal(t, OutcomeSuccess, steps[StepExtractRecords])

	require.Equal(t, "addr-9", result.State.RequireAddressId())
	require.Equal(t, doordash.Coordinates{Lat: 40.7, Lng: -74}, result.State.Coords())

	require.Contains(t, sink.documents, "homepage_feed")
	require.Contains(t, sink.documents, "now_on_doordash_feed")
	require.Equal(t, []string{"Pizza Place"}, names(sink.records["now_on_doordash_stores"]))
	require.True(t, rec.Has(telemetry.REPORT_COUNT, report_flow_run))
}

func TestRunFallsBackToGeneralFeed(t *testing.T) {
	remote := newFakeRemote(t, homeWithoutSection)
	sink := newMemorySink()

	result, err := New(remote, Options{Sink: sink}, &telemetry.Recorder{}).Run(context.Background(), "x")
	require.NoError(t, err)

	require.Equal(t, "feed:default", remote.calls[len(remote.calls)-1])
	require.False(t, result.SectionFound)
	require.Equal(t, GeneralFeedLabel, result.Label)
	require.Equal(t, []string{"Taco Town"}, names(result.Records))
	require.Equal(t, OutcomeSkipped, outcomes(result.Steps)[StepSectionFeed])

	require.Contains(t, sink.documents, "general_content_feed")
	require.Contains(t, sink.records, "general_stores")
}

func TestRunSectionFeedFailureFallsBack(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	remote.sectionErr = &doordash.StatusError{Op: "feed", Status: 500}
	rec := &telemetry.Recorder{}

	result, err := New(remote, Options{}, rec).Run(context.Background(), "x")
	require.NoError(t, err)

	calls := remote.calls[len(remote.calls)-2:]
	require.Equal(t, []string{"feed:abc123", "feed:default"}, calls)
	require.Equal(t, GeneralFeedLabel, result.Label)
	require.False(t, result.SectionFound)
	require.Equal(t, extract.SectionToken("abc123"), result.Token)
	require.Equal(t, OutcomeFailure, outcomes(result.Steps)[StepSectionFeed])
	require.True(t, rec.Has(telemetry.REPORT_WARNING, report_executor_step))
}

func TestRunGeneralFeedFailureAborts(t *testing.T) {
	remote := newFakeRemote(t, homeWithoutSection)
	remote.generalErr = &doordash.TransportError{Op: "feed", Err: errors.New("timeout")}
	sink := newMemorySink()

	result, err := New(remote, Options{Sink: sink}, &telemetry.Recorder{}).Run(context.Background(), "x")

	var abort *SequenceAbort
	require.ErrorAs(t, err, &abort)
	require.Equal(t, StepGeneralFeed, abort.Step)
	var transportErr *doordash.TransportError
	require.ErrorAs(t, err, &transportErr)

	require.Nil(t, result.Records)
	require.Contains(t, sink.documents, "homepage_feed")
	require.Len(t, sink.documents, 1)
}

func TestRunMalformedGuestAborts(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	remote.guestErr = &doordash.MalformedError{Op: "create guest", Reason: "missing auth_token.token"}

	result, err := New(remote, Options{}, &telemetry.Recorder{}).Run(context.Background(), "x")

	var abort *SequenceAbort
	require.ErrorAs(t, err, &abort)
	require.Equal(t, StepCreateGuest, abort.Step)
	var malformed *doordash.MalformedError
	require.ErrorAs(t, err, &malformed)

	require.Equal(t, []string{"health", "guest"}, remote.calls)
	require.Len(t, result.Steps, 2)
	require.False(t, result.State.HasCredential())
}

func TestRunHealthCheckIsOptional(t *testing.T) {
	t.Run("failure continues", func(t *testing.T) {
		remote := newFakeRemote(t, homeWithSection)
		remote.healthErr = &doordash.StatusError{Op: "health", Status: 403}

		result, err := New(remote, Options{}, &telemetry.Recorder{}).Run(context.Background(), "x")
		require.NoError(t, err)
		require.Equal(t, OutcomeFailure, outcomes(result.Steps)[StepHealthCheck])
		require.NotEmpty(t, result.Records)
	})

	t.Run("skipped", func(t *testing.T) {
		remote := newFakeRemote(t, homeWithSection)

		result, err := New(remote, Options{SkipHealthCheck: true}, &telemetry.Recorder{}).Run(context.Background(), "x")
		require.NoError(t, err)
		require.Equal(t, "guest", remote.calls[0])
		require.Equal(t, OutcomeSkipped, outcomes(result.Steps)[StepHealthCheck])
	})
}

func TestRunSetDefaultAddress(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		lenient  bool
		aborts   bool
		outcome  string
		reported telemetry.ReportKind
	}{
		{
			name:     "not found is tolerated",
			err:      &doordash.StatusError{Op: "set default", Status: 404},
			outcome:  OutcomeTolerated,
			reported: telemetry.REPORT_WARNING,
		},
		{
			name:     "wrapped not found is tolerated",
			err:      fmt.Errorf("context: %w", &doordash.StatusError{Op: "set default", Status: 404}),
			outcome:  OutcomeTolerated,
			reported: telemetry.REPORT_WARNING,
		},
		{
			name:    "server error aborts",
			err:     &doordash.StatusError{Op: "set default", Status: 500},
			aborts:  true,
			outcome: OutcomeFailure,
		},
		{
			name:    "transport error aborts",
			err:     &doordash.TransportError{Op: "set default", Err: errors.New("reset")},
			aborts:  true,
			outcome: OutcomeFailure,
		},
		{
			name:     "lenient tolerates server error",
			err:      &doordash.StatusError{Op: "set default", Status: 500},
			lenient:  true,
			outcome:  OutcomeTolerated,
			reported: telemetry.REPORT_BROKEN,
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			remote := newFakeRemote(t, homeWithSection)
			remote.setDefaultErr = testCase.err
			rec := &telemetry.Recorder{}

			result, err := New(remote, Options{LenientSetDefault: testCase.lenient}, rec).
				Run(context.Background(), "x")
			require.Equal(t, testCase.outcome, outcomes(result.Steps)[StepSetDefaultAddress])

			if testCase.aborts {
				var abort *SequenceAbort
				require.ErrorAs(t, err, &abort)
				require.Equal(t, StepSetDefaultAddress, abort.Step)
				require.NotContains(t, remote.calls, "homepage")
				return
			}
			require.NoError(t, err)
			require.Contains(t, remote.calls, "homepage")
			require.True(t, rec.Has(testCase.reported, report_executor_step))
		})
	}
}

func TestRunOnboarding(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	remote.onboardingErr = &doordash.StatusError{Op: "onboarding", Status: 400}

	result, err := New(remote, Options{Onboarding: true}, &telemetry.Recorder{}).Run(context.Background(), "x")
	require.NoError(t, err)

	require.Equal(t, []string{
		"health",
		"guest",
		"experiments",
		"register-device",
		"privacy-consents",
		"profile",
		"update-language:en-US",
		"list-addresses",
	}, remote.calls[:8])

	steps := outcomes(result.Steps)
	for _, name := range []string{StepExperiments, StepRegisterDevice, StepPrivacyConsents, StepProfile, StepUpdateLanguage} {
		require.Equal(t, OutcomeFailure, steps[name], name)
	}
	require.NotEmpty(t, result.Records)
}

func TestRunEmptySection(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	remote.sectionFeed = mustParse(t, `{"body": []}`)

	result, err := New(remote, Options{}, &telemetry.Recorder{}).Run(context.Background(), "x")
	require.NoError(t, err)
	require.NotNil(t, result.Records)
	require.Empty(t, result.Records)
	require.True(t, result.SectionFound)
}

func TestRunCustomSection(t *testing.T) {
	remote := newFakeRemote(t, homeWithSection)
	sink := newMemorySink()

	result, err := New(remote, Options{
		SectionTitle: "Deals",
		Match:        extract.TitleSimilar("deals", 0.9),
		Sink:         sink,
	}, &telemetry.Recorder{}).Run(context.Background(), "x")
	require.NoError(t, err)

	require.Equal(t, extract.SectionToken("deals"), result.Token)
	require.Equal(t, "Deals", result.Label)
	require.Contains(t, sink.documents, "deals_feed")
}

func TestArtifactNames(t *testing.T) {
	cases := []struct {
		label   string
		feed    string
		records string
	}{
		{label: "Now on DoorDash", feed: "now_on_doordash_feed", records: "now_on_doordash_stores"},
		{label: GeneralFeedLabel, feed: "general_content_feed", records: "general_stores"},
		{label: "  Fast & Cheap!! ", feed: "fast_cheap_feed", records: "fast_cheap_stores"},
		{label: "***", feed: "section_feed", records: "section_stores"},
	}

	for _, testCase := range cases {
		feed, records := ArtifactNames(testCase.label)
		require.Equal(t, testCase.feed, feed)
		require.Equal(t, testCase.records, records)
	}
}
