package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bubblecast/internal/auth"
	"bubblecast/internal/automation"
	"bubblecast/internal/models"
	"bubblecast/internal/notify"
	"bubblecast/internal/storage"
)

var testDB *models.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(
		ctx,
		"postgres:latest",
		tcpostgres.WithDatabase("test_db"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		log.Fatalf("could not start postgres container for tests: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("could not get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgresql://user:password@%s:%s/test_db?sslmode=disable", host, port.Port())
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("could not connect to test database: %v", err)
	}

	testDB = models.Wrap(gormDB)
	if err := testDB.AutoMigrate(); err != nil {
		log.Fatalf("could not migrate test database: %v", err)
	}

	exitCode := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("warning: could not terminate postgres container: %v", err)
	}
	os.Exit(exitCode)
}

// Test doubles

type fakeDrive struct {
	mu       sync.Mutex
	rawCalls int
	folders  []string
	fail     bool
}

func (f *fakeDrive) EnsureRawFolder(_ context.Context, root string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawCalls++
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	return root + "/RAW", nil
}

func (f *fakeDrive) CreateCreatorFolder(_ context.Context, rawID, creatorName, castingTitle string) (*storage.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("storage unavailable")
	}
	id := fmt.Sprintf("%s/%s-%s", rawID, castingTitle, creatorName)
	f.folders = append(f.folders, id)
	return &storage.Folder{FolderID: id, FolderURL: "https://drive.example/" + id}, nil
}

type fakeMail struct {
	mu   sync.Mutex
	jobs []notify.EmailJob
}

func (f *fakeMail) EnqueueBatch(_ context.Context, jobs []notify.EmailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, jobs...)
	return nil
}

func (f *fakeMail) byKind(kind notify.EmailKind) []notify.EmailJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.EmailJob
	for _, job := range f.jobs {
		if job.Kind == kind {
			out = append(out, job)
		}
	}
	return out
}

type firedTrigger struct {
	name   string
	params map[string]interface{}
}

type fakeDispatch struct {
	mu    sync.Mutex
	fired []firedTrigger
}

func (f *fakeDispatch) Trigger(_ context.Context, name string, params map[string]interface{}, _ automation.TriggerOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, firedTrigger{name: name, params: params})
	return nil
}

func (f *fakeDispatch) named(name string) []firedTrigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []firedTrigger
	for _, t := range f.fired {
		if t.name == name {
			out = append(out, t)
		}
	}
	return out
}

// Fixtures

type fixture struct {
	orch     *Orchestrator
	drive    *fakeDrive
	mail     *fakeMail
	dispatch *fakeDispatch
	client   *models.Client
	agency   auth.Role
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cleanTables(t)

	drive := &fakeDrive{}
	mail := &fakeMail{}
	dispatch := &fakeDispatch{}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := &models.Client{
		CompanyName:       "Acme Drinks",
		ContactEmail:      "contact@acme.example",
		DriveRootFolderID: "clients/acme",
	}
	if err := testDB.Clients.Create(client); err != nil {
		t.Fatalf("could not create client: %v", err)
	}

	return &fixture{
		orch:     NewOrchestrator(testDB, drive, mail, dispatch, logger, "https://app.example.com"),
		drive:    drive,
		mail:     mail,
		dispatch: dispatch,
		client:   client,
		agency:   auth.AgencyRole(1),
	}
}

func cleanTables(t *testing.T) {
	t.Helper()
	tables := []string{
		"automation_logs", "automation_actions", "automation_rules",
		"creator_submissions", "casting_briefing_links", "casting_selections",
		"casting_invitations", "castings", "briefings", "users", "creators", "clients",
	}
	for _, table := range tables {
		if err := testDB.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("could not clean %s: %v", table, err)
		}
	}
}

func (f *fixture) newCasting(t *testing.T, status models.CastingStatus, maxCreators int) *models.Casting {
	t.Helper()
	casting := &models.Casting{
		ClientID:     f.client.ID,
		Title:        "Summer Launch",
		Status:       status,
		MaxCreators:  maxCreators,
		Compensation: 150000,
	}
	if err := testDB.Castings.Create(casting); err != nil {
		t.Fatalf("could not create casting: %v", err)
	}
	return casting
}

func (f *fixture) newCreator(t *testing.T, name string) *models.Creator {
	t.Helper()
	creator := &models.Creator{
		Name:  name,
		Email: fmt.Sprintf("%s@creators.example", name),
	}
	if err := testDB.Creators.Create(creator); err != nil {
		t.Fatalf("could not create creator: %v", err)
	}
	return creator
}

func (f *fixture) newBriefing(t *testing.T, status models.BriefingStatus) *models.Briefing {
	t.Helper()
	briefing := &models.Briefing{
		ClientID: f.client.ID,
		Title:    "Summer Content Briefing",
		Status:   status,
		Content:  models.JSONB{"sections": []interface{}{"hooks", "dos and donts"}},
	}
	if err := testDB.Briefings.Create(briefing); err != nil {
		t.Fatalf("could not create briefing: %v", err)
	}
	return briefing
}

func (f *fixture) invite(t *testing.T, casting *models.Casting, creators ...*models.Creator) []models.CastingInvitation {
	t.Helper()
	ids := make([]uuid.UUID, len(creators))
	for i, c := range creators {
		ids[i] = c.ID
	}
	invitations, err := testDB.Invitations.BulkCreate(casting.ID, ids)
	if err != nil {
		t.Fatalf("could not create invitations: %v", err)
	}
	return invitations
}

func acceptInvitation(t *testing.T, inv models.CastingInvitation) {
	t.Helper()
	loaded, err := testDB.Invitations.Get(inv.ID)
	if err != nil {
		t.Fatalf("could not load invitation: %v", err)
	}
	ok, err := loaded.Accept(testDB.DB)
	if err != nil {
		t.Fatalf("could not accept invitation: %v", err)
	}
	if !ok {
		t.Fatal("invitation was already answered")
	}
}

func rejectInvitation(t *testing.T, inv models.CastingInvitation, reason string) {
	t.Helper()
	loaded, err := testDB.Invitations.Get(inv.ID)
	if err != nil {
		t.Fatalf("could not load invitation: %v", err)
	}
	ok, err := loaded.Reject(testDB.DB, reason)
	if err != nil {
		t.Fatalf("could not reject invitation: %v", err)
	}
	if !ok {
		t.Fatal("invitation was already answered")
	}
}

// Invitations

func TestSendInvitations(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)
	a := f.newCreator(t, "anna")
	b := f.newCreator(t, "ben")

	err := f.orch.SendInvitations(context.Background(), f.agency, casting.ID, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("SendInvitations failed: %v", err)
	}

	updated, _ := testDB.Castings.Get(casting.ID)
	if updated.Status != models.CastingInviting {
		t.Errorf("expected status inviting, got %s", updated.Status)
	}

	invitations, _ := testDB.Invitations.ForCasting(casting.ID)
	if len(invitations) != 2 {
		t.Fatalf("expected 2 invitations, got %d", len(invitations))
	}
	for _, inv := range invitations {
		if inv.Status != models.InvitationPending {
			t.Errorf("expected pending invitation, got %s", inv.Status)
		}
	}

	invites := f.mail.byKind(notify.EmailInvite)
	if len(invites) != 2 {
		t.Fatalf("expected 2 invite emails, got %d", len(invites))
	}
	if invites[0].Params["clientName"] != "Acme Drinks" {
		t.Errorf("expected client name in invite params, got %v", invites[0].Params)
	}
}

func TestSendInvitationsRequiresAgency(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)
	creator := f.newCreator(t, "anna")

	clientActor := auth.ClientRole(9, f.client.ID)
	err := f.orch.SendInvitations(context.Background(), clientActor, casting.ID, []uuid.UUID{creator.ID})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSendInvitationsOnlyFromDraft(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)
	creator := f.newCreator(t, "anna")
	ids := []uuid.UUID{creator.ID}

	if err := f.orch.SendInvitations(context.Background(), f.agency, casting.ID, ids); err != nil {
		t.Fatalf("first SendInvitations failed: %v", err)
	}

	err := f.orch.SendInvitations(context.Background(), f.agency, casting.ID, ids)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second call, got %v", err)
	}

	invitations, _ := testDB.Invitations.ForCasting(casting.ID)
	if len(invitations) != 1 {
		t.Errorf("expected no duplicate invitations, got %d", len(invitations))
	}
}

func TestSendInvitationsUnknownCreator(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)

	err := f.orch.SendInvitations(context.Background(), f.agency, casting.ID, []uuid.UUID{uuid.New()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRespondToInvitationAccept(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingInviting, 3)
	a := f.newCreator(t, "anna")
	b := f.newCreator(t, "ben")
	invitations := f.invite(t, casting, a, b)

	var annaInv models.CastingInvitation
	for _, inv := range invitations {
		if inv.CreatorID == a.ID {
			annaInv = inv
		}
	}

	actor := auth.CreatorRole(5, a.ID)
	if err := f.orch.RespondToInvitation(context.Background(), actor, annaInv.ID, true, ""); err != nil {
		t.Fatalf("RespondToInvitation failed: %v", err)
	}

	loaded, _ := testDB.Invitations.Get(annaInv.ID)
	if loaded.Status != models.InvitationAccepted {
		t.Errorf("expected accepted, got %s", loaded.Status)
	}
	if loaded.RespondedAt == nil {
		t.Error("expected responded_at to be stamped")
	}

	fired := f.dispatch.named(automation.TriggerInvitationAccepted)
	if len(fired) != 1 {
		t.Fatalf("expected one invitation-accepted trigger, got %d", len(fired))
	}
	params := fired[0].params
	if params["creatorName"] != "anna" {
		t.Errorf("unexpected creatorName: %v", params["creatorName"])
	}
	if params["invitedCount"] != int64(2) || params["acceptedCount"] != int64(1) {
		t.Errorf("unexpected counts: invited=%v accepted=%v", params["invitedCount"], params["acceptedCount"])
	}
	if params["briefingStatus"] != "not_ready" {
		t.Errorf("expected briefingStatus not_ready, got %v", params["briefingStatus"])
	}
}

func TestRespondToInvitationDoubleAcceptFiresOneTrigger(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingInviting, 3)
	a := f.newCreator(t, "anna")
	invitations := f.invite(t, casting, a)

	actor := auth.CreatorRole(5, a.ID)
	if err := f.orch.RespondToInvitation(context.Background(), actor, invitations[0].ID, true, ""); err != nil {
		t.Fatalf("RespondToInvitation failed: %v", err)
	}
	if err := f.orch.RespondToInvitation(context.Background(), actor, invitations[0].ID, true, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second accept, got %v", err)
	}

	fired := f.dispatch.named(automation.TriggerInvitationAccepted)
	if len(fired) != 1 {
		t.Errorf("expected exactly one invitation-accepted trigger, got %d", len(fired))
	}
}

func TestRespondToInvitationRejectNeedsNoTrigger(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingInviting, 3)
	a := f.newCreator(t, "anna")
	invitations := f.invite(t, casting, a)

	actor := auth.CreatorRole(5, a.ID)
	if err := f.orch.RespondToInvitation(context.Background(), actor, invitations[0].ID, false, "fully booked"); err != nil {
		t.Fatalf("RespondToInvitation failed: %v", err)
	}

	loaded, _ := testDB.Invitations.Get(invitations[0].ID)
	if loaded.Status != models.InvitationRejected {
		t.Errorf("expected rejected, got %s", loaded.Status)
	}
	if loaded.RejectionReason == nil || *loaded.RejectionReason != "fully booked" {
		t.Error("expected rejection reason to be stored")
	}
	if len(f.dispatch.fired) != 0 {
		t.Errorf("expected no trigger on reject, got %d", len(f.dispatch.fired))
	}
}

func TestRespondToInvitationOnlyInvitedCreator(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingInviting, 3)
	a := f.newCreator(t, "anna")
	other := f.newCreator(t, "ben")
	invitations := f.invite(t, casting, a)

	actor := auth.CreatorRole(6, other.ID)
	err := f.orch.RespondToInvitation(context.Background(), actor, invitations[0].ID, true, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := f.orch.RespondToInvitation(context.Background(), f.agency, invitations[0].ID, true, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for agency respond, got %v", err)
	}
}

// Final selection

func TestSelectFinalCreatorsWithoutBriefing(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingSendClientFeedback, 3)
	chosen1 := f.newCreator(t, "anna")
	chosen2 := f.newCreator(t, "ben")
	passedOver := f.newCreator(t, "cara")
	silent := f.newCreator(t, "dan")
	declined := f.newCreator(t, "erin")
	invitations := f.invite(t, casting, chosen1, chosen2, passedOver, silent, declined)

	for _, inv := range invitations {
		switch inv.CreatorID {
		case silent.ID:
		case declined.ID:
			rejectInvitation(t, inv, "fully booked")
		default:
			acceptInvitation(t, inv)
		}
	}

	clientActor := auth.ClientRole(9, f.client.ID)
	newStatus, err := f.orch.SelectFinalCreators(context.Background(), clientActor, casting.ID, []uuid.UUID{chosen1.ID, chosen2.ID})
	if err != nil {
		t.Fatalf("SelectFinalCreators failed: %v", err)
	}
	if newStatus != models.CastingApprovedByClient {
		t.Errorf("expected approved_by_client, got %s", newStatus)
	}

	selections, _ := testDB.Selections.ForCastingAndRole(casting.ID, models.SelectedByClient)
	if len(selections) != 2 {
		t.Errorf("expected 2 client selections, got %d", len(selections))
	}

	if got := len(f.mail.byKind(notify.EmailApprovedNoBriefing)); got != 2 {
		t.Errorf("expected 2 approved-without-briefing emails, got %d", got)
	}
	if got := len(f.mail.byKind(notify.EmailNotSelected)); got != 1 {
		t.Errorf("expected 1 not-selected email, got %d", got)
	}
	if got := len(f.mail.byKind(notify.EmailCastingClosed)); got != 1 {
		t.Errorf("expected 1 casting-closed email, got %d", got)
	}
	// A creator who declined receives none of the outcome templates.
	for _, job := range f.mail.jobs {
		if job.Recipient == declined.Email {
			t.Errorf("declined creator should receive no email, got %s", job.Kind)
		}
	}

	fired := f.dispatch.named(automation.TriggerCastingApproved)
	if len(fired) != 1 {
		t.Fatalf("expected one casting_approved trigger, got %d", len(fired))
	}
	if fired[0].params["briefingStatus"] != "not_ready" {
		t.Errorf("expected not_ready, got %v", fired[0].params["briefingStatus"])
	}
	if fired[0].params["chosenCreatorsCount"] != 2 {
		t.Errorf("expected chosenCreatorsCount 2, got %v", fired[0].params["chosenCreatorsCount"])
	}

	if f.drive.rawCalls != 0 {
		t.Error("expected no folder provisioning without approved briefing")
	}
}

func TestSelectFinalCreatorsWithApprovedBriefing(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingSendClientFeedback, 3)
	briefing := f.newBriefing(t, models.BriefingApproved)
	if err := testDB.BriefingLinks.Create(&models.CastingBriefingLink{
		CastingID: casting.ID, BriefingID: briefing.ID,
	}); err != nil {
		t.Fatalf("could not link briefing: %v", err)
	}

	anna := f.newCreator(t, "anna")
	invitations := f.invite(t, casting, anna)
	acceptInvitation(t, invitations[0])

	clientActor := auth.ClientRole(9, f.client.ID)
	newStatus, err := f.orch.SelectFinalCreators(context.Background(), clientActor, casting.ID, []uuid.UUID{anna.ID})
	if err != nil {
		t.Fatalf("SelectFinalCreators failed: %v", err)
	}
	if newStatus != models.CastingShooting {
		t.Errorf("expected shooting, got %s", newStatus)
	}

	if f.drive.rawCalls != 1 {
		t.Errorf("expected RAW folder provisioning, got %d calls", f.drive.rawCalls)
	}
	if len(f.drive.folders) != 1 {
		t.Fatalf("expected 1 creator folder, got %d", len(f.drive.folders))
	}

	submission, err := testDB.Submissions.GetByCastingAndCreator(casting.ID, anna.ID)
	if err != nil {
		t.Fatalf("expected submission row: %v", err)
	}
	if submission.DriveFolderID == "" || submission.FolderProvisionedAt == nil {
		t.Error("expected folder stamped on submission")
	}
	if submission.SubmissionStatus != models.SubmissionPending {
		t.Errorf("expected pending submission, got %s", submission.SubmissionStatus)
	}

	if got := len(f.mail.byKind(notify.EmailApprovedBriefing)); got != 1 {
		t.Errorf("expected 1 approved-with-briefing email, got %d", got)
	}
}

func TestSelectFinalCreatorsExceedsMax(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingSendClientFeedback, 1)
	a := f.newCreator(t, "anna")
	b := f.newCreator(t, "ben")

	clientActor := auth.ClientRole(9, f.client.ID)
	_, err := f.orch.SelectFinalCreators(context.Background(), clientActor, casting.ID, []uuid.UUID{a.ID, b.ID})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	selections, _ := testDB.Selections.ForCasting(casting.ID)
	if len(selections) != 0 {
		t.Errorf("expected no selection rows after failed call, got %d", len(selections))
	}
}

func TestSelectFinalCreatorsWrongState(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)
	a := f.newCreator(t, "anna")

	clientActor := auth.ClientRole(9, f.client.ID)
	_, err := f.orch.SelectFinalCreators(context.Background(), clientActor, casting.ID, []uuid.UUID{a.ID})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSelectFinalCreatorsForeignClient(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingSendClientFeedback, 3)
	a := f.newCreator(t, "anna")

	otherClient := &models.Client{CompanyName: "Other Co"}
	if err := testDB.Clients.Create(otherClient); err != nil {
		t.Fatalf("could not create client: %v", err)
	}

	actor := auth.ClientRole(9, otherClient.ID)
	_, err := f.orch.SelectFinalCreators(context.Background(), actor, casting.ID, []uuid.UUID{a.ID})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// Shortlist

func TestSelectForClientReviewAppends(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingCheckIntern, 3)
	a := f.newCreator(t, "anna")

	ids := []uuid.UUID{a.ID}
	if err := f.orch.SelectForClientReview(context.Background(), f.agency, casting.ID, ids); err != nil {
		t.Fatalf("SelectForClientReview failed: %v", err)
	}
	// Re-shortlisting appends a second generation instead of deduplicating.
	if err := f.orch.SelectForClientReview(context.Background(), f.agency, casting.ID, ids); err != nil {
		t.Fatalf("second SelectForClientReview failed: %v", err)
	}

	selections, _ := testDB.Selections.ForCastingAndRole(casting.ID, models.SelectedBySocialBubble)
	if len(selections) != 2 {
		t.Errorf("expected 2 appended shortlist rows, got %d", len(selections))
	}

	updated, _ := testDB.Castings.Get(casting.ID)
	if updated.Status != models.CastingCheckIntern {
		t.Errorf("expected status untouched, got %s", updated.Status)
	}
}

// Briefing linkage

func TestLinkBriefingClientMismatch(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)

	otherClient := &models.Client{CompanyName: "Other Co"}
	if err := testDB.Clients.Create(otherClient); err != nil {
		t.Fatalf("could not create client: %v", err)
	}
	foreign := &models.Briefing{ClientID: otherClient.ID, Title: "Foreign", Status: models.BriefingDraft}
	if err := testDB.Briefings.Create(foreign); err != nil {
		t.Fatalf("could not create briefing: %v", err)
	}

	err := f.orch.LinkBriefing(context.Background(), f.agency, casting.ID, foreign.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLinkUnlinkRoundTrip(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)
	briefing := f.newBriefing(t, models.BriefingDraft)

	before, _ := testDB.Briefings.AvailableForCasting(f.client.ID, casting.ID)

	if err := f.orch.LinkBriefing(context.Background(), f.agency, casting.ID, briefing.ID); err != nil {
		t.Fatalf("LinkBriefing failed: %v", err)
	}
	during, _ := testDB.Briefings.AvailableForCasting(f.client.ID, casting.ID)
	if len(during) != len(before)-1 {
		t.Errorf("expected available list to shrink by one, got %d -> %d", len(before), len(during))
	}

	if err := f.orch.UnlinkBriefing(context.Background(), f.agency, casting.ID, briefing.ID); err != nil {
		t.Fatalf("UnlinkBriefing failed: %v", err)
	}
	after, _ := testDB.Briefings.AvailableForCasting(f.client.ID, casting.ID)
	if len(after) != len(before) {
		t.Errorf("expected available list restored, got %d want %d", len(after), len(before))
	}
}

func TestLinkApprovedBriefingActivatesShooting(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingApprovedByClient, 3)
	anna := f.newCreator(t, "anna")
	invitations := f.invite(t, casting, anna)
	acceptInvitation(t, invitations[0])
	if _, err := testDB.Selections.BulkCreate(casting.ID, []uuid.UUID{anna.ID}, models.SelectedByClient, 9); err != nil {
		t.Fatalf("could not seed final selection: %v", err)
	}

	briefing := f.newBriefing(t, models.BriefingApproved)
	if err := f.orch.LinkBriefing(context.Background(), f.agency, casting.ID, briefing.ID); err != nil {
		t.Fatalf("LinkBriefing failed: %v", err)
	}

	updated, _ := testDB.Castings.Get(casting.ID)
	if updated.Status != models.CastingShooting {
		t.Errorf("expected shooting after approved-briefing link, got %s", updated.Status)
	}
	if f.drive.rawCalls != 1 {
		t.Errorf("expected folder provisioning, got %d raw calls", f.drive.rawCalls)
	}
	if got := len(f.mail.byKind(notify.EmailApprovedBriefing)); got != 1 {
		t.Errorf("expected 1 approved-with-briefing email, got %d", got)
	}
}

func TestApproveBriefingFansOutOverLinkedCastings(t *testing.T) {
	f := newFixture(t)
	waiting := f.newCasting(t, models.CastingApprovedByClient, 3)
	early := f.newCasting(t, models.CastingInviting, 3)

	anna := f.newCreator(t, "anna")
	invitations := f.invite(t, waiting, anna)
	acceptInvitation(t, invitations[0])
	if _, err := testDB.Selections.BulkCreate(waiting.ID, []uuid.UUID{anna.ID}, models.SelectedByClient, 9); err != nil {
		t.Fatalf("could not seed final selection: %v", err)
	}

	briefing := f.newBriefing(t, models.BriefingPendingClient)
	for _, castingID := range []uuid.UUID{waiting.ID, early.ID} {
		if err := testDB.BriefingLinks.Create(&models.CastingBriefingLink{
			CastingID: castingID, BriefingID: briefing.ID,
		}); err != nil {
			t.Fatalf("could not link briefing: %v", err)
		}
	}

	clientActor := auth.ClientRole(9, f.client.ID)
	if err := f.orch.ApproveBriefing(context.Background(), clientActor, briefing.ID); err != nil {
		t.Fatalf("ApproveBriefing failed: %v", err)
	}

	updatedWaiting, _ := testDB.Castings.Get(waiting.ID)
	if updatedWaiting.Status != models.CastingShooting {
		t.Errorf("expected waiting casting in shooting, got %s", updatedWaiting.Status)
	}
	updatedEarly, _ := testDB.Castings.Get(early.ID)
	if updatedEarly.Status != models.CastingInviting {
		t.Errorf("expected early casting untouched, got %s", updatedEarly.Status)
	}

	loaded, _ := testDB.Briefings.Get(briefing.ID)
	if loaded.Status != models.BriefingApproved {
		t.Errorf("expected approved briefing, got %s", loaded.Status)
	}
}

// Status updates

func TestSubmitBriefingForApprovalNotifiesClientUsers(t *testing.T) {
	f := newFixture(t)
	briefing := f.newBriefing(t, models.BriefingDraft)

	clientUser := &models.User{
		Provider: "google", ProviderID: "p1", Email: "buyer@acme.example",
		Name: "Buyer", Role: models.UserRoleClient, ClientID: &f.client.ID,
	}
	if err := testDB.Users.Create(clientUser); err != nil {
		t.Fatalf("could not create client user: %v", err)
	}

	if err := f.orch.SubmitBriefingForApproval(context.Background(), f.agency, briefing.ID); err != nil {
		t.Fatalf("SubmitBriefingForApproval failed: %v", err)
	}

	loaded, err := testDB.Briefings.Get(briefing.ID)
	if err != nil {
		t.Fatalf("could not load briefing: %v", err)
	}
	if loaded.Status != models.BriefingPendingClient {
		t.Errorf("expected status pending_client, got %s", loaded.Status)
	}

	ready := f.mail.byKind(notify.EmailBriefingReady)
	if len(ready) != 1 {
		t.Fatalf("expected 1 briefing-ready email, got %d", len(ready))
	}
	if ready[0].Recipient != "buyer@acme.example" {
		t.Errorf("unexpected recipient: %s", ready[0].Recipient)
	}

	// A second submit finds the briefing no longer in draft.
	if err := f.orch.SubmitBriefingForApproval(context.Background(), f.agency, briefing.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestUpdateCastingStatusChangeFiresTrigger(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingInviting, 3)

	status := models.CastingCheckIntern
	updated, err := f.orch.UpdateCasting(context.Background(), f.agency, casting.ID, UpdateCastingInput{Status: &status})
	if err != nil {
		t.Fatalf("UpdateCasting failed: %v", err)
	}
	if updated.Status != models.CastingCheckIntern {
		t.Errorf("expected check_intern, got %s", updated.Status)
	}

	fired := f.dispatch.named(automation.TriggerStatusChanged)
	if len(fired) != 1 {
		t.Fatalf("expected one status-changed trigger, got %d", len(fired))
	}
	if fired[0].params["previousStatus"] != "inviting" || fired[0].params["newStatus"] != "check_intern" {
		t.Errorf("unexpected trigger params: %v", fired[0].params)
	}
}

func TestUpdateCastingIntoClientFeedbackNotifiesClientUsers(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingCheckIntern, 3)

	clientUser := &models.User{
		Provider: "google", ProviderID: "p1", Email: "buyer@acme.example",
		Name: "Buyer", Role: models.UserRoleClient, ClientID: &f.client.ID,
	}
	if err := testDB.Users.Create(clientUser); err != nil {
		t.Fatalf("could not create client user: %v", err)
	}

	status := models.CastingSendClientFeedback
	if _, err := f.orch.UpdateCasting(context.Background(), f.agency, casting.ID, UpdateCastingInput{Status: &status}); err != nil {
		t.Fatalf("UpdateCasting failed: %v", err)
	}

	reviews := f.mail.byKind(notify.EmailReviewReady)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review-ready email, got %d", len(reviews))
	}
	if reviews[0].Recipient != "buyer@acme.example" {
		t.Errorf("unexpected recipient: %s", reviews[0].Recipient)
	}
}

func TestUpdateCastingRejectsUndefinedTransition(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingDraft, 3)

	status := models.CastingDone
	_, err := f.orch.UpdateCasting(context.Background(), f.agency, casting.ID, UpdateCastingInput{Status: &status})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestUpdateCastingClientRestrictions(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingSendClientFeedback, 3)
	clientActor := auth.ClientRole(9, f.client.ID)

	comp := int64(999)
	if _, err := f.orch.UpdateCasting(context.Background(), clientActor, casting.ID, UpdateCastingInput{Compensation: &comp}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for compensation change, got %v", err)
	}

	bad := models.CastingDone
	if _, err := f.orch.UpdateCasting(context.Background(), clientActor, casting.ID, UpdateCastingInput{Status: &bad}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for forbidden transition, got %v", err)
	}

	good := models.CastingApprovedByClient
	updated, err := f.orch.UpdateCasting(context.Background(), clientActor, casting.ID, UpdateCastingInput{Status: &good})
	if err != nil {
		t.Fatalf("expected client approval transition to succeed, got %v", err)
	}
	if updated.Status != models.CastingApprovedByClient {
		t.Errorf("expected approved_by_client, got %s", updated.Status)
	}
}

// Conditional-update guard

func TestConditionalStatusUpdateSingleWinner(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingApprovedByClient, 3)

	first, err := testDB.Castings.UpdateStatusIf(casting.ID, models.CastingApprovedByClient, models.CastingShooting)
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	second, err := testDB.Castings.UpdateStatusIf(casting.ID, models.CastingApprovedByClient, models.CastingShooting)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if !first || second {
		t.Errorf("expected exactly one winner, got first=%v second=%v", first, second)
	}
}

// Submissions

func seedSubmission(t *testing.T, f *fixture, casting *models.Casting, creator *models.Creator, status models.SubmissionStatus) *models.CreatorSubmission {
	t.Helper()
	submission := &models.CreatorSubmission{
		CastingID:        casting.ID,
		CreatorID:        creator.ID,
		SubmissionStatus: status,
	}
	if err := testDB.Submissions.Create(submission); err != nil {
		t.Fatalf("could not create submission: %v", err)
	}
	return submission
}

func TestSubmitWork(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingShooting, 3)
	anna := f.newCreator(t, "anna")
	seedSubmission(t, f, casting, anna, models.SubmissionPending)

	actor := auth.CreatorRole(5, anna.ID)
	if err := f.orch.SubmitWork(context.Background(), actor, casting.ID, anna.ID); err != nil {
		t.Fatalf("SubmitWork failed: %v", err)
	}

	loaded, _ := testDB.Submissions.GetByCastingAndCreator(casting.ID, anna.ID)
	if loaded.SubmissionStatus != models.SubmissionPendingReview {
		t.Errorf("expected pending_review, got %s", loaded.SubmissionStatus)
	}
	if loaded.SubmittedAt == nil {
		t.Error("expected submitted_at to be stamped")
	}

	// Submitting again while already under review is rejected.
	if err := f.orch.SubmitWork(context.Background(), actor, casting.ID, anna.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double submit, got %v", err)
	}
}

func TestSubmitWorkOtherCreatorForbidden(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingShooting, 3)
	anna := f.newCreator(t, "anna")
	ben := f.newCreator(t, "ben")
	seedSubmission(t, f, casting, anna, models.SubmissionPending)

	actor := auth.CreatorRole(6, ben.ID)
	if err := f.orch.SubmitWork(context.Background(), actor, casting.ID, anna.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Agency may submit on a creator's behalf.
	if err := f.orch.SubmitWork(context.Background(), f.agency, casting.ID, anna.ID); err != nil {
		t.Fatalf("agency submit-on-behalf failed: %v", err)
	}
}

func TestReviewSubmissionRejectRequiresFeedback(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingShooting, 3)
	anna := f.newCreator(t, "anna")
	seedSubmission(t, f, casting, anna, models.SubmissionPendingReview)

	err := f.orch.ReviewSubmission(context.Background(), f.agency, casting.ID, anna.ID, false, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	loaded, _ := testDB.Submissions.GetByCastingAndCreator(casting.ID, anna.ID)
	if loaded.SubmissionStatus != models.SubmissionPendingReview {
		t.Errorf("expected status untouched, got %s", loaded.SubmissionStatus)
	}
}

func TestReviewSubmissionRevisionCycle(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingShooting, 3)
	anna := f.newCreator(t, "anna")
	seedSubmission(t, f, casting, anna, models.SubmissionPendingReview)

	if err := f.orch.ReviewSubmission(context.Background(), f.agency, casting.ID, anna.ID, false, "hook is too long"); err != nil {
		t.Fatalf("ReviewSubmission reject failed: %v", err)
	}
	loaded, _ := testDB.Submissions.GetByCastingAndCreator(casting.ID, anna.ID)
	if loaded.SubmissionStatus != models.SubmissionRevisionRequested {
		t.Errorf("expected revision_requested, got %s", loaded.SubmissionStatus)
	}
	if loaded.Feedback != "hook is too long" {
		t.Errorf("expected feedback stored, got %q", loaded.Feedback)
	}

	actor := auth.CreatorRole(5, anna.ID)
	if err := f.orch.SubmitWork(context.Background(), actor, casting.ID, anna.ID); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}

	if err := f.orch.ReviewSubmission(context.Background(), f.agency, casting.ID, anna.ID, true, ""); err != nil {
		t.Fatalf("ReviewSubmission approve failed: %v", err)
	}
	loaded, _ = testDB.Submissions.GetByCastingAndCreator(casting.ID, anna.ID)
	if loaded.SubmissionStatus != models.SubmissionApproved {
		t.Errorf("expected approved, got %s", loaded.SubmissionStatus)
	}
	if loaded.ApprovedBy == nil || *loaded.ApprovedBy != f.agency.UserID {
		t.Error("expected approved_by to be stamped")
	}
	if loaded.ApprovedAt == nil {
		t.Error("expected approved_at to be stamped")
	}
}

func TestReviewSubmissionApprovalAdvancesWaitingCasting(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingApprovedByClient, 3)
	anna := f.newCreator(t, "anna")
	seedSubmission(t, f, casting, anna, models.SubmissionPendingReview)

	if err := f.orch.ReviewSubmission(context.Background(), f.agency, casting.ID, anna.ID, true, ""); err != nil {
		t.Fatalf("ReviewSubmission approve failed: %v", err)
	}

	updated, _ := testDB.Castings.Get(casting.ID)
	if updated.Status != models.CastingShooting {
		t.Errorf("expected casting advanced to shooting, got %s", updated.Status)
	}

	// A casting no longer waiting in approved_by_client is left alone.
	finished := f.newCasting(t, models.CastingDone, 3)
	ben := f.newCreator(t, "ben")
	seedSubmission(t, f, finished, ben, models.SubmissionPendingReview)

	if err := f.orch.ReviewSubmission(context.Background(), f.agency, finished.ID, ben.ID, true, ""); err != nil {
		t.Fatalf("ReviewSubmission approve failed: %v", err)
	}
	loaded, _ := testDB.Castings.Get(finished.ID)
	if loaded.Status != models.CastingDone {
		t.Errorf("expected finished casting untouched, got %s", loaded.Status)
	}
}

func TestReviewSubmissionClientForbidden(t *testing.T) {
	f := newFixture(t)
	casting := f.newCasting(t, models.CastingShooting, 3)
	anna := f.newCreator(t, "anna")
	seedSubmission(t, f, casting, anna, models.SubmissionPendingReview)

	clientActor := auth.ClientRole(9, f.client.ID)
	err := f.orch.ReviewSubmission(context.Background(), clientActor, casting.ID, anna.ID, true, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
