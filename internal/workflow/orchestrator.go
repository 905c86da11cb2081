// Package workflow implements the casting state machine: invitations,
// shortlist and final selection, briefing linkage, the shared shooting
// activation, and the creator submission flow. The orchestrator mutates
// state through guarded conditional updates and fans side effects (folder
// provisioning, email batches, automation triggers) out behind it, catching
// and logging collaborator failures so they never roll back a transition.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bubblecast/internal/auth"
	"bubblecast/internal/automation"
	"bubblecast/internal/models"
	"bubblecast/internal/notify"
	"bubblecast/internal/storage"
)

// Drive provisions content folders. Implementations must be idempotent:
// provisioning an existing folder returns it instead of failing.
type Drive interface {
	EnsureRawFolder(ctx context.Context, clientRootFolderID string) (string, error)
	CreateCreatorFolder(ctx context.Context, rawFolderID, creatorName, castingTitle string) (*storage.Folder, error)
}

// Dispatcher fires automation triggers.
type Dispatcher interface {
	Trigger(ctx context.Context, triggerName string, params map[string]interface{}, opts automation.TriggerOptions) error
}

// Orchestrator owns every casting state transition and its side effects.
type Orchestrator struct {
	db     *models.DB
	drive  Drive
	mail   notify.Enqueuer
	engine Dispatcher
	logger *logrus.Logger
	appURL string
}

// NewOrchestrator wires the orchestrator. drive may be nil when no storage
// backend is configured; folder provisioning is then skipped.
func NewOrchestrator(db *models.DB, drive Drive, mail notify.Enqueuer, engine Dispatcher, logger *logrus.Logger, appURL string) *Orchestrator {
	return &Orchestrator{
		db:     db,
		drive:  drive,
		mail:   mail,
		engine: engine,
		logger: logger,
		appURL: appURL,
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// statusTransitions is the transition table. A status update outside it is
// rejected with ErrInvalidState regardless of actor.
var statusTransitions = map[models.CastingStatus][]models.CastingStatus{
	models.CastingDraft:              {models.CastingInviting},
	models.CastingInviting:           {models.CastingCheckIntern},
	models.CastingCheckIntern:        {models.CastingSendClientFeedback},
	models.CastingSendClientFeedback: {models.CastingApprovedByClient, models.CastingShooting},
	models.CastingApprovedByClient:   {models.CastingShooting},
	models.CastingShooting:           {models.CastingDone},
}

func transitionAllowed(from, to models.CastingStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func formatCompensation(cents int64) string {
	return fmt.Sprintf("€%d.%02d", cents/100, cents%100)
}

func (o *Orchestrator) castingURL(castingID uuid.UUID) string {
	return fmt.Sprintf("%s/castings/%s", o.appURL, castingID)
}

// SendInvitations moves a draft casting to inviting, creates one pending
// invitation per creator and enqueues one invite email per creator. The
// status flip is the idempotency guard: a second call finds the casting no
// longer in draft and fails with ErrInvalidState.
func (o *Orchestrator) SendInvitations(ctx context.Context, actor auth.Role, castingID uuid.UUID, creatorIDs []uuid.UUID) error {
	if !actor.IsAgency() {
		return ErrUnauthorized
	}
	if len(creatorIDs) == 0 {
		return fmt.Errorf("%w: no creators to invite", ErrValidation)
	}

	casting, err := o.db.Castings.GetWithRelations(castingID)
	if err != nil {
		return notFoundOr(err)
	}

	creators, err := o.db.Creators.GetMany(creatorIDs)
	if err != nil {
		return err
	}
	if len(creators) != len(creatorIDs) {
		return fmt.Errorf("%w: one or more creators do not exist", ErrNotFound)
	}

	ok, err := o.db.Castings.UpdateStatusIf(castingID, models.CastingDraft, models.CastingInviting)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: casting is no longer in draft", ErrInvalidState)
	}

	invitations, err := o.db.Invitations.BulkCreate(castingID, creatorIDs)
	if err != nil {
		return err
	}

	creatorsByID := make(map[uuid.UUID]models.Creator, len(creators))
	for _, creator := range creators {
		creatorsByID[creator.ID] = creator
	}

	jobs := make([]notify.EmailJob, 0, len(invitations))
	for _, invitation := range invitations {
		creator := creatorsByID[invitation.CreatorID]
		jobs = append(jobs, notify.InviteJob(creator.Email, notify.InviteParams{
			CreatorName:  creator.Name,
			CastingTitle: casting.Title,
			ClientName:   casting.Client.CompanyName,
			Compensation: formatCompensation(casting.Compensation),
			RespondURL:   fmt.Sprintf("%s/invitations/%s", o.appURL, invitation.ID),
		}))
	}
	o.enqueueEmails(ctx, jobs)

	return nil
}

// RespondToInvitation records the invited creator's accept/reject. The
// conditional update inside Accept/Reject is the idempotency guard: a
// double-submitted response loses the guard and cannot fire the
// casting_invitation_accepted trigger twice. Automation failures are logged
// and never roll back the response.
func (o *Orchestrator) RespondToInvitation(ctx context.Context, actor auth.Role, invitationID uuid.UUID, accept bool, reason string) error {
	invitation, err := o.db.Invitations.Get(invitationID)
	if err != nil {
		return notFoundOr(err)
	}
	if !actor.IsCreator(invitation.CreatorID) {
		return ErrUnauthorized
	}

	var answered bool
	if accept {
		answered, err = invitation.Accept(o.db.DB)
	} else {
		answered, err = invitation.Reject(o.db.DB, reason)
	}
	if err != nil {
		return err
	}
	if !answered {
		return fmt.Errorf("%w: invitation was already answered", ErrInvalidState)
	}

	if !accept {
		return nil
	}

	casting, err := o.db.Castings.GetWithRelations(invitation.CastingID)
	if err != nil {
		o.logger.WithError(err).Warn("could not load casting for invitation-accepted trigger")
		return nil
	}

	invited, _ := o.db.Invitations.Count(casting.ID)
	accepted, _ := o.db.Invitations.CountByStatus(casting.ID, models.InvitationAccepted)

	o.fireTrigger(ctx, automation.TriggerInvitationAccepted, map[string]interface{}{
		"castingId":      casting.ID.String(),
		"castingTitle":   casting.Title,
		"clientName":     casting.Client.CompanyName,
		"creatorId":      invitation.CreatorID.String(),
		"creatorName":    invitation.Creator.Name,
		"invitedCount":   invited,
		"acceptedCount":  accepted,
		"briefingStatus": o.briefingStatus(casting),
	}, actor)

	return nil
}

// SelectForClientReview appends the internal shortlist rows. Repeated calls
// append further rows; the audit trail keeps every generation. Status stays
// untouched; the caller moves to send_client_feedback separately.
func (o *Orchestrator) SelectForClientReview(ctx context.Context, actor auth.Role, castingID uuid.UUID, creatorIDs []uuid.UUID) error {
	if !actor.IsAgency() {
		return ErrUnauthorized
	}
	if len(creatorIDs) == 0 {
		return fmt.Errorf("%w: no creators selected", ErrValidation)
	}
	if _, err := o.db.Castings.Get(castingID); err != nil {
		return notFoundOr(err)
	}

	_, err := o.db.Selections.BulkCreate(castingID, creatorIDs, models.SelectedBySocialBubble, actor.UserID)
	return err
}

// SelectFinalCreators records the client's confirmed picks and advances the
// casting: straight to shooting when an approved briefing is linked, else to
// approved_by_client. Returns the new status.
func (o *Orchestrator) SelectFinalCreators(ctx context.Context, actor auth.Role, castingID uuid.UUID, creatorIDs []uuid.UUID) (models.CastingStatus, error) {
	casting, err := o.db.Castings.GetWithRelations(castingID)
	if err != nil {
		return "", notFoundOr(err)
	}
	if !actor.IsAgency() && !actor.OwnsClient(casting.ClientID) {
		return "", ErrUnauthorized
	}
	if casting.Status != models.CastingSendClientFeedback {
		return "", fmt.Errorf("%w: casting is not awaiting client feedback", ErrInvalidState)
	}
	if len(creatorIDs) == 0 {
		return "", fmt.Errorf("%w: no creators selected", ErrValidation)
	}
	if len(creatorIDs) > casting.MaxCreators {
		return "", fmt.Errorf("%w: selection of %d exceeds max_creators %d", ErrValidation, len(creatorIDs), casting.MaxCreators)
	}

	if _, err := o.db.Selections.BulkCreate(castingID, creatorIDs, models.SelectedByClient, actor.UserID); err != nil {
		return "", err
	}

	approvedBriefings, err := casting.ApprovedBriefingCount(o.db.DB)
	if err != nil {
		return "", err
	}
	briefingReady := approvedBriefings > 0

	if briefingReady {
		ok, err := o.activateShooting(ctx, casting, models.CastingSendClientFeedback, creatorIDs)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: casting left client feedback concurrently", ErrInvalidState)
		}
	} else {
		ok, err := o.db.Castings.UpdateStatusIf(castingID, models.CastingSendClientFeedback, models.CastingApprovedByClient)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: casting left client feedback concurrently", ErrInvalidState)
		}
		o.notifySelectionOutcome(ctx, casting, creatorIDs, false)
	}

	briefingCount, _ := casting.LinkedBriefingCount(o.db.DB)
	briefingStatus := "not_ready"
	if briefingReady {
		briefingStatus = "ready"
	}
	o.fireTrigger(ctx, automation.TriggerCastingApproved, map[string]interface{}{
		"castingId":           casting.ID.String(),
		"castingTitle":        casting.Title,
		"clientName":          casting.Client.CompanyName,
		"chosenCreatorsCount": len(creatorIDs),
		"briefingStatus":      briefingStatus,
		"briefingCount":       briefingCount,
		"approvedBy":          actor.String(),
	}, actor)

	if briefingReady {
		return models.CastingShooting, nil
	}
	return models.CastingApprovedByClient, nil
}

// UpdateCastingInput is the patch for UpdateCasting; nil fields are left
// untouched.
type UpdateCastingInput struct {
	Title        *string
	Status       *models.CastingStatus
	MaxCreators  *int
	Compensation *int64
}

// UpdateCasting applies a patch. Agency users may change any field through
// any transition in the table; client users may only move their own casting
// from send_client_feedback to approved_by_client. Every status change fires
// casting_status_changed, and entering send_client_feedback notifies the
// client's users that the shortlist is ready for review.
func (o *Orchestrator) UpdateCasting(ctx context.Context, actor auth.Role, castingID uuid.UUID, patch UpdateCastingInput) (*models.Casting, error) {
	casting, err := o.db.Castings.GetWithRelations(castingID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	switch {
	case actor.IsAgency():
	case actor.OwnsClient(casting.ClientID):
		if patch.Title != nil || patch.MaxCreators != nil || patch.Compensation != nil {
			return nil, ErrUnauthorized
		}
		if patch.Status != nil &&
			(casting.Status != models.CastingSendClientFeedback || *patch.Status != models.CastingApprovedByClient) {
			return nil, ErrUnauthorized
		}
	default:
		return nil, ErrUnauthorized
	}

	if patch.Title != nil {
		casting.Title = *patch.Title
	}
	if patch.MaxCreators != nil {
		if *patch.MaxCreators < 1 {
			return nil, fmt.Errorf("%w: max_creators must be at least 1", ErrValidation)
		}
		casting.MaxCreators = *patch.MaxCreators
	}
	if patch.Compensation != nil {
		casting.Compensation = *patch.Compensation
	}

	previousStatus := casting.Status
	statusChanged := patch.Status != nil && *patch.Status != previousStatus
	if statusChanged {
		if !(*patch.Status).IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
		}
		if !transitionAllowed(previousStatus, *patch.Status) {
			return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, previousStatus, *patch.Status)
		}
		ok, err := o.db.Castings.UpdateStatusIf(castingID, previousStatus, *patch.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: casting status changed concurrently", ErrInvalidState)
		}
		casting.Status = *patch.Status
	}

	if err := casting.Save(o.db.DB); err != nil {
		return nil, err
	}

	if statusChanged {
		invitationCount, _ := o.db.Invitations.Count(castingID)
		acceptedCount, _ := o.db.Invitations.CountByStatus(castingID, models.InvitationAccepted)
		selectionCount := int64(len(casting.Selections))

		o.fireTrigger(ctx, automation.TriggerStatusChanged, map[string]interface{}{
			"castingId":       casting.ID.String(),
			"castingTitle":    casting.Title,
			"clientName":      casting.Client.CompanyName,
			"previousStatus":  string(previousStatus),
			"newStatus":       string(casting.Status),
			"invitationCount": invitationCount,
			"acceptedCount":   acceptedCount,
			"selectionCount":  selectionCount,
			"changedBy":       actor.String(),
		}, actor)

		if casting.Status == models.CastingSendClientFeedback {
			o.notifyClientReviewReady(ctx, casting)
		}
	}

	return casting, nil
}

// LinkBriefing links a briefing to a casting of the same client. Linking an
// approved briefing to a casting waiting in approved_by_client activates
// shooting through the shared path.
func (o *Orchestrator) LinkBriefing(ctx context.Context, actor auth.Role, castingID, briefingID uuid.UUID) error {
	casting, err := o.db.Castings.GetWithRelations(castingID)
	if err != nil {
		return notFoundOr(err)
	}
	if !actor.IsAgency() && !actor.OwnsClient(casting.ClientID) {
		return ErrUnauthorized
	}

	briefing, err := o.db.Briefings.Get(briefingID)
	if err != nil {
		return notFoundOr(err)
	}
	if briefing.ClientID != casting.ClientID {
		return fmt.Errorf("%w: briefing and casting belong to different clients", ErrValidation)
	}

	exists, err := o.db.BriefingLinks.Exists(castingID, briefingID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: briefing is already linked", ErrValidation)
	}

	if err := o.db.BriefingLinks.Create(&models.CastingBriefingLink{
		CastingID:  castingID,
		BriefingID: briefingID,
	}); err != nil {
		return err
	}

	if briefing.Status == models.BriefingApproved && casting.Status == models.CastingApprovedByClient {
		o.tryActivateShootingFromBriefing(ctx, casting)
	}
	return nil
}

// UnlinkBriefing removes a briefing link, returning the briefing to the
// casting's available list.
func (o *Orchestrator) UnlinkBriefing(ctx context.Context, actor auth.Role, castingID, briefingID uuid.UUID) error {
	casting, err := o.db.Castings.Get(castingID)
	if err != nil {
		return notFoundOr(err)
	}
	if !actor.IsAgency() && !actor.OwnsClient(casting.ClientID) {
		return ErrUnauthorized
	}

	exists, err := o.db.BriefingLinks.Exists(castingID, briefingID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: briefing is not linked", ErrNotFound)
	}
	return o.db.BriefingLinks.Delete(castingID, briefingID)
}

// SubmitBriefingForApproval moves a draft briefing to pending_client and
// emails the client's users that it awaits their sign-off.
func (o *Orchestrator) SubmitBriefingForApproval(ctx context.Context, actor auth.Role, briefingID uuid.UUID) error {
	briefing, err := o.db.Briefings.Get(briefingID)
	if err != nil {
		return notFoundOr(err)
	}
	if !actor.IsAgency() && !actor.OwnsClient(briefing.ClientID) {
		return ErrUnauthorized
	}
	if briefing.Status != models.BriefingDraft {
		return fmt.Errorf("%w: briefing is not in draft", ErrInvalidState)
	}

	briefing.Status = models.BriefingPendingClient
	if err := o.db.Briefings.Update(briefing); err != nil {
		return err
	}

	client, err := o.db.Clients.Get(briefing.ClientID)
	if err != nil {
		o.logger.WithError(err).WithField("briefing_id", briefing.ID).Warn("could not load client for briefing notification")
		return nil
	}
	users, err := o.db.Users.ForClient(briefing.ClientID)
	if err != nil {
		o.logger.WithError(err).WithField("client_id", briefing.ClientID).Warn("could not load client users")
		return nil
	}

	jobs := make([]notify.EmailJob, 0, len(users))
	for _, user := range users {
		jobs = append(jobs, notify.BriefingReadyJob(user.Email, notify.CastingParams{
			RecipientName: user.Name,
			CastingTitle:  briefing.Title,
			ClientName:    client.CompanyName,
			CastingURL:    fmt.Sprintf("%s/briefings/%s", o.appURL, briefing.ID),
		}))
	}
	o.enqueueEmails(ctx, jobs)
	return nil
}

// ApproveBriefing marks a briefing approved and fans the shooting activation
// out over every linked casting waiting in approved_by_client. One casting's
// failure never blocks the next.
func (o *Orchestrator) ApproveBriefing(ctx context.Context, actor auth.Role, briefingID uuid.UUID) error {
	briefing, err := o.db.Briefings.Get(briefingID)
	if err != nil {
		return notFoundOr(err)
	}
	if !actor.IsAgency() && !actor.OwnsClient(briefing.ClientID) {
		return ErrUnauthorized
	}
	if briefing.Status == models.BriefingApproved {
		return fmt.Errorf("%w: briefing is already approved", ErrInvalidState)
	}

	briefing.Status = models.BriefingApproved
	if err := o.db.Briefings.Update(briefing); err != nil {
		return err
	}

	castings, err := o.db.BriefingLinks.CastingsForBriefing(briefingID)
	if err != nil {
		o.logger.WithError(err).Warn("could not load linked castings for briefing approval")
		return nil
	}

	for i := range castings {
		if castings[i].Status != models.CastingApprovedByClient {
			continue
		}
		casting, err := o.db.Castings.GetWithRelations(castings[i].ID)
		if err != nil {
			o.logger.WithError(err).WithField("casting_id", castings[i].ID).
				Warn("could not load casting during briefing approval fan-out")
			continue
		}
		o.tryActivateShootingFromBriefing(ctx, casting)
	}
	return nil
}

// tryActivateShootingFromBriefing runs the shared shooting activation for a
// casting whose briefing just became ready. Losing the conditional-update
// race is not an error.
func (o *Orchestrator) tryActivateShootingFromBriefing(ctx context.Context, casting *models.Casting) {
	chosen := o.finalSelectionIDs(casting)
	if len(chosen) == 0 {
		o.logger.WithField("casting_id", casting.ID).
			Warn("approved briefing linked but casting has no final selection")
		return
	}
	if _, err := o.activateShooting(ctx, casting, models.CastingApprovedByClient, chosen); err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).
			Warn("shooting activation failed during briefing fan-out")
	}
}

// finalSelectionIDs returns the distinct client-selected creator ids.
func (o *Orchestrator) finalSelectionIDs(casting *models.Casting) []uuid.UUID {
	selections, err := o.db.Selections.ForCastingAndRole(casting.ID, models.SelectedByClient)
	if err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).Warn("could not load final selections")
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(selections))
	var ids []uuid.UUID
	for _, selection := range selections {
		if !seen[selection.CreatorID] {
			seen[selection.CreatorID] = true
			ids = append(ids, selection.CreatorID)
		}
	}
	return ids
}

// activateShooting is the single shooting-transition path shared by final
// selection and briefing approval/linking. The conditional status update is
// the idempotency key: only the caller that wins the flip runs the folder
// provisioning and notification fan-out.
func (o *Orchestrator) activateShooting(ctx context.Context, casting *models.Casting, from models.CastingStatus, chosen []uuid.UUID) (bool, error) {
	ok, err := o.db.Castings.UpdateStatusIf(casting.ID, from, models.CastingShooting)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	casting.Status = models.CastingShooting

	o.provisionFolders(ctx, casting, chosen)
	o.notifySelectionOutcome(ctx, casting, chosen, true)
	return true, nil
}

// provisionFolders ensures the RAW folder and one creator subfolder per
// chosen creator, stamping each CreatorSubmission with its folder. Failures
// are caught per creator; one creator's storage failure never aborts the
// others or the transition.
func (o *Orchestrator) provisionFolders(ctx context.Context, casting *models.Casting, chosen []uuid.UUID) {
	if o.drive == nil || casting.Client.DriveRootFolderID == "" {
		o.logger.WithField("casting_id", casting.ID).Info("no storage root configured, skipping folder provisioning")
		o.ensureSubmissions(casting.ID, chosen)
		return
	}

	rawFolderID, err := o.drive.EnsureRawFolder(ctx, casting.Client.DriveRootFolderID)
	if err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).Warn("could not ensure RAW folder")
		o.ensureSubmissions(casting.ID, chosen)
		return
	}

	creators, err := o.db.Creators.GetMany(chosen)
	if err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).Warn("could not load chosen creators")
		return
	}

	for _, creator := range creators {
		submission, err := o.db.Submissions.GetOrCreate(casting.ID, creator.ID)
		if err != nil {
			o.logger.WithError(err).WithField("creator_id", creator.ID).Warn("could not create submission row")
			continue
		}

		folder, err := o.drive.CreateCreatorFolder(ctx, rawFolderID, creator.Name, casting.Title)
		if err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"casting_id": casting.ID,
				"creator_id": creator.ID,
			}).Warn("could not provision creator folder")
			continue
		}

		if err := submission.StampFolder(o.db.DB, folder.FolderID, folder.FolderURL); err != nil {
			o.logger.WithError(err).WithField("creator_id", creator.ID).Warn("could not stamp folder on submission")
		}
	}
}

// ensureSubmissions creates the pending submission rows when folder
// provisioning is skipped or fails before reaching them.
func (o *Orchestrator) ensureSubmissions(castingID uuid.UUID, chosen []uuid.UUID) {
	for _, creatorID := range chosen {
		if _, err := o.db.Submissions.GetOrCreate(castingID, creatorID); err != nil {
			o.logger.WithError(err).WithField("creator_id", creatorID).Warn("could not create submission row")
		}
	}
}

// notifySelectionOutcome partitions every invited creator into chosen,
// accepted-but-not-chosen and never-responded, and enqueues the matching
// template for each. Rejected creators receive nothing.
func (o *Orchestrator) notifySelectionOutcome(ctx context.Context, casting *models.Casting, chosen []uuid.UUID, withBriefing bool) {
	invitations, err := o.db.Invitations.ForCasting(casting.ID)
	if err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).Warn("could not load invitations for notification fan-out")
		return
	}

	chosenSet := make(map[uuid.UUID]bool, len(chosen))
	for _, id := range chosen {
		chosenSet[id] = true
	}

	uploadURL := fmt.Sprintf("%s/castings/%s/submissions", o.appURL, casting.ID)
	briefingURL := fmt.Sprintf("%s/castings/%s/briefing", o.appURL, casting.ID)

	var jobs []notify.EmailJob
	for _, invitation := range invitations {
		creator := invitation.Creator
		switch {
		case chosenSet[invitation.CreatorID]:
			params := notify.ApprovedParams{
				CreatorName:  creator.Name,
				CastingTitle: casting.Title,
				ClientName:   casting.Client.CompanyName,
				UploadURL:    uploadURL,
			}
			if withBriefing {
				params.BriefingURL = briefingURL
				jobs = append(jobs, notify.ApprovedWithBriefingJob(creator.Email, params))
			} else {
				jobs = append(jobs, notify.ApprovedWithoutBriefingJob(creator.Email, params))
			}
		case invitation.Status == models.InvitationAccepted:
			jobs = append(jobs, notify.NotSelectedJob(creator.Email, notify.CastingParams{
				RecipientName: creator.Name,
				CastingTitle:  casting.Title,
				ClientName:    casting.Client.CompanyName,
			}))
		case invitation.Status == models.InvitationPending:
			jobs = append(jobs, notify.CastingClosedJob(creator.Email, notify.CastingParams{
				RecipientName: creator.Name,
				CastingTitle:  casting.Title,
				ClientName:    casting.Client.CompanyName,
			}))
		}
	}
	o.enqueueEmails(ctx, jobs)
}

// notifyClientReviewReady emails every client-side user that the shortlist
// is ready for their feedback.
func (o *Orchestrator) notifyClientReviewReady(ctx context.Context, casting *models.Casting) {
	users, err := o.db.Users.ForClient(casting.ClientID)
	if err != nil {
		o.logger.WithError(err).WithField("client_id", casting.ClientID).Warn("could not load client users")
		return
	}

	jobs := make([]notify.EmailJob, 0, len(users))
	for _, user := range users {
		jobs = append(jobs, notify.ReviewReadyJob(user.Email, notify.CastingParams{
			RecipientName: user.Name,
			CastingTitle:  casting.Title,
			ClientName:    casting.Client.CompanyName,
			CastingURL:    o.castingURL(casting.ID),
		}))
	}
	o.enqueueEmails(ctx, jobs)
}

// briefingStatus reports ready when any linked briefing is approved.
func (o *Orchestrator) briefingStatus(casting *models.Casting) string {
	count, err := casting.ApprovedBriefingCount(o.db.DB)
	if err != nil {
		o.logger.WithError(err).WithField("casting_id", casting.ID).Warn("could not count approved briefings")
		return "not_ready"
	}
	if count > 0 {
		return "ready"
	}
	return "not_ready"
}

func (o *Orchestrator) enqueueEmails(ctx context.Context, jobs []notify.EmailJob) {
	if o.mail == nil || len(jobs) == 0 {
		return
	}
	if err := o.mail.EnqueueBatch(ctx, jobs); err != nil {
		o.logger.WithError(err).Warn("could not enqueue email batch")
	}
}

func (o *Orchestrator) fireTrigger(ctx context.Context, name string, params map[string]interface{}, actor auth.Role) {
	if o.engine == nil {
		return
	}
	opts := automation.TriggerOptions{ExecutedBy: actor.String()}
	if err := o.engine.Trigger(ctx, name, params, opts); err != nil {
		o.logger.WithError(err).WithField("trigger", name).Warn("automation dispatch failed")
	}
}
