package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"murmur_server/models"
	"murmur_server/repositories"
	"murmur_server/utils"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Reasons reported with an empty candidate pool
const (
	ReasonNoUsers    = "no_users"
	ReasonAllMatched = "all_matched"
)

// MatchResult is the outcome of RequestMatch. An empty pool is a result, not an error.
type MatchResult struct {
	Match        *models.MatchView      `json:"match,omitempty"`
	Request      *models.MessageRequest `json:"messageRequest,omitempty"`
	NoCandidates bool                   `json:"-"`
	Reason       string                 `json:"-"`
	Message      string                 `json:"-"`
}

// RespondResult is the outcome of RespondToRequest. Room is set on acceptance only.
type RespondResult struct {
	Request *models.MessageRequest `json:"request"`
	Room    *models.ChatRoomRef    `json:"chatRoom,omitempty"`
}

// RequestList is the mailbox view of one identity.
type RequestList struct {
	Requests []models.MessageRequest
	Sent     []models.MessageRequest
	Received []models.MessageRequest
	Flagged  int // Records hidden because their parties no longer have opposite genders
}

// MatchList is the ledger view of one identity.
type MatchList struct {
	Matches []models.MatchView
	Flagged int
}

// MatchmakingService pairs identities and drives the consent handshake that
// ends in a chat room. No in-process lock is held across store calls: the
// stores reject duplicate pairs and every commit point re-reads genders.
type MatchmakingService struct {
	identities IdentityStore
	matches    MatchLedger
	requests   RequestMailbox
	rooms      *RoomService
	notifier   Notifier
	log        *slog.Logger
	pick       func(n int) int
	now        func() time.Time
}

type MatchmakingOption func(*MatchmakingService)

// WithPicker replaces the uniform random candidate picker.
func WithPicker(pick func(n int) int) MatchmakingOption {
	return func(s *MatchmakingService) { s.pick = pick }
}

func WithClock(now func() time.Time) MatchmakingOption {
	return func(s *MatchmakingService) { s.now = now }
}

func NewMatchmakingService(
	identities IdentityStore,
	matches MatchLedger,
	requests RequestMailbox,
	rooms *RoomService,
	notifier Notifier,
	log *slog.Logger,
	opts ...MatchmakingOption,
) *MatchmakingService {
	s := &MatchmakingService{
		identities: identities,
		matches:    matches,
		requests:   requests,
		rooms:      rooms,
		notifier:   notifier,
		log:        log,
		pick:       rand.IntN,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestMatch picks a random verified candidate of the opposite gender and
// opens a pending match with its message request. Every failure after the
// first write deletes what was written.
func (s *MatchmakingService) RequestMatch(ctx context.Context, requesterID string) (*MatchResult, error) {
	requester, err := s.identities.FindByID(ctx, requesterID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "User not found")
	}
	if err != nil {
		return nil, s.internal("❌ Failed to fetch requester", err, "requesterId", requesterID)
	}
	targetGender, ok := models.OppositeGender(requester.Gender)
	if !ok {
		s.log.Info("⚠️ Requester has no usable gender", "requesterId", requesterID, "gender", requester.Gender)
		return nil, newError(CodeInvalidGenderState, "Your profile needs a gender of male or female before matching")
	}

	history, err := s.matches.ListMatchesForUser(ctx, requesterID)
	if err != nil {
		return nil, s.internal("❌ Failed to fetch match history", err, "requesterId", requesterID)
	}
	excluded := lo.Associate(history, func(m models.Match) (string, bool) {
		other, _ := m.OtherUser(requesterID)
		return other, true
	})
	excluded[requesterID] = true

	pool, err := s.identities.FindMany(ctx, models.IdentityFilter{Gender: targetGender, VerifiedOnly: true})
	if err != nil {
		return nil, s.internal("❌ Failed to fetch candidates", err, "requesterId", requesterID)
	}
	candidates := lo.Filter(pool, func(p models.UserProfile, _ int) bool {
		return !excluded[p.UserID]
	})

	if len(candidates) == 0 {
		result := &MatchResult{NoCandidates: true, Reason: ReasonAllMatched, Message: "You have already matched with all available users"}
		if len(lo.Filter(pool, func(p models.UserProfile, _ int) bool { return p.UserID != requesterID })) == 0 {
			result.Reason = ReasonNoUsers
			result.Message = "No users available for matching right now"
		}
		s.log.Info("🔍 No candidates", "requesterId", requesterID, "reason", result.Reason, "pool", len(pool))
		return result, nil
	}

	candidate := candidates[s.pick(len(candidates))]
	s.log.Debug("🎲 Candidate selected", "requesterId", requesterID, "candidateId", candidate.UserID, "pool", len(candidates))

	active, err := s.matches.FindActiveMatch(ctx, requesterID, candidate.UserID)
	if err != nil {
		return nil, s.internal("❌ Failed to check existing match", err, "requesterId", requesterID)
	}
	if active != nil {
		return nil, newError(CodeDuplicateMatch, "A match with this user already exists")
	}

	now := s.now()
	pairKey := utils.PairKey(requesterID, candidate.UserID)
	match := models.Match{
		MatchID:     uuid.New().String(),
		User1Handle: requesterID,
		User2Handle: candidate.UserID,
		PairKey:     pairKey,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.matches.CreateMatch(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeDuplicateMatch, "A match with this user already exists")
		}
		return nil, s.internal("❌ Failed to create match", err, "requesterId", requesterID)
	}

	// The ledger entry is committed: run to success or full compensation.
	ctx = context.WithoutCancel(ctx)

	existing, err := s.requests.FindActiveRequest(ctx, requesterID, candidate.UserID)
	if err != nil {
		s.compensate(ctx, match.MatchID, "")
		return nil, s.internal("❌ Failed to check existing request", err, "matchId", match.MatchID)
	}
	if existing != nil {
		s.compensate(ctx, match.MatchID, "")
		return nil, newError(CodeDuplicateRequest, "A message request with this user already exists")
	}

	request := models.MessageRequest{
		RequestID:       uuid.New().String(),
		SenderHandle:    requesterID,
		RecipientHandle: candidate.UserID,
		Status:          models.StatusPending,
		MatchID:         match.MatchID,
		PairKey:         pairKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.requests.CreateRequest(ctx, request); err != nil {
		s.compensate(ctx, match.MatchID, "")
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeDuplicateRequest, "A message request with this user already exists")
		}
		return nil, s.internal("❌ Failed to create message request", err, "matchId", match.MatchID)
	}

	view, err := s.confirmOppositeGenders(ctx, &match)
	if err != nil {
		s.compensate(ctx, match.MatchID, request.RequestID)
		return nil, err
	}

	s.log.Info("✅ Match created", "matchId", match.MatchID, "requestId", request.RequestID)
	s.notifier.Notify(ctx, models.EventRequestNew, []string{request.RecipientHandle}, request)

	return &MatchResult{Match: view, Request: &request, Message: "Match found"}, nil
}

// RespondToRequest lets the recipient accept or reject a pending request.
// Accepting opens (or reuses) the pair's chat room.
func (s *MatchmakingService) RespondToRequest(ctx context.Context, responderID, requestID string, accept bool) (*RespondResult, error) {
	request, err := s.requests.GetRequest(ctx, requestID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "Message request not found")
	}
	if err != nil {
		return nil, s.internal("❌ Failed to fetch message request", err, "requestId", requestID)
	}
	if request.RecipientHandle != responderID {
		s.log.Warn("🚫 Responder is not the recipient", "requestId", requestID, "responderId", responderID)
		return nil, newError(CodeUnauthorized, "Only the recipient can respond to this request")
	}
	if request.Status != models.StatusPending {
		return nil, newError(CodeAlreadyResolved, "This request has already been "+request.Status)
	}

	if !accept {
		return s.reject(ctx, request)
	}

	match := &models.Match{MatchID: request.MatchID, User1Handle: request.SenderHandle, User2Handle: request.RecipientHandle}
	if _, err := s.confirmOppositeGenders(ctx, match); err != nil {
		return nil, err
	}

	accepted, err := s.requests.UpdateRequestStatus(ctx, requestID, models.StatusPending, models.StatusAccepted)
	if err != nil {
		return nil, s.statusErr("❌ Failed to accept request", err, requestID)
	}

	ctx = context.WithoutCancel(ctx)

	if request.MatchID != "" {
		_, err := s.matches.UpdateMatchStatus(ctx, request.MatchID, models.StatusPending, models.StatusAccepted)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			s.revertRequest(ctx, requestID, models.StatusAccepted)
			return nil, s.internal("❌ Failed to accept match", err, "matchId", request.MatchID)
		}
	}

	room, err := s.rooms.FindOrCreate(ctx, request.SenderHandle, request.RecipientHandle)
	if err != nil {
		s.revertRequest(ctx, requestID, models.StatusAccepted)
		if request.MatchID != "" {
			if _, revertErr := s.matches.UpdateMatchStatus(ctx, request.MatchID, models.StatusAccepted, models.StatusPending); revertErr != nil {
				s.log.Error("❌ Failed to revert match", "matchId", request.MatchID, "error", revertErr)
			}
		}
		return nil, s.internal("❌ Failed to open chat room", err, "requestId", requestID)
	}

	result := &RespondResult{Request: accepted, Room: room.Ref()}
	s.log.Info("✅ Request accepted", "requestId", requestID, "roomId", room.RoomID)
	s.notifier.Notify(ctx, models.EventRequestAccepted, []string{request.SenderHandle, request.RecipientHandle}, result)
	return result, nil
}

func (s *MatchmakingService) reject(ctx context.Context, request *models.MessageRequest) (*RespondResult, error) {
	rejected, err := s.requests.UpdateRequestStatus(ctx, request.RequestID, models.StatusPending, models.StatusRejected)
	if err != nil {
		return nil, s.statusErr("❌ Failed to reject request", err, request.RequestID)
	}

	ctx = context.WithoutCancel(ctx)

	if request.MatchID != "" {
		_, err := s.matches.UpdateMatchStatus(ctx, request.MatchID, models.StatusPending, models.StatusRejected)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			s.revertRequest(ctx, request.RequestID, models.StatusRejected)
			return nil, s.internal("❌ Failed to reject match", err, "matchId", request.MatchID)
		}
	}

	result := &RespondResult{Request: rejected}
	s.log.Info("🚫 Request rejected", "requestId", request.RequestID)
	s.notifier.Notify(ctx, models.EventRequestRejected, []string{request.SenderHandle, request.RecipientHandle}, result)
	return result, nil
}

// ListRequests returns the requests the identity sent or received. Only
// pending requests are listed unless includeHistory is set.
func (s *MatchmakingService) ListRequests(ctx context.Context, identityID string, includeHistory bool) (*RequestList, error) {
	all, err := s.requests.ListRequestsForUser(ctx, identityID)
	if err != nil {
		return nil, s.internal("❌ Failed to fetch requests", err, "userId", identityID)
	}
	if !includeHistory {
		all = lo.Filter(all, func(r models.MessageRequest, _ int) bool { return r.Status == models.StatusPending })
	}

	genders := s.genderReader(ctx)
	list := &RequestList{Requests: []models.MessageRequest{}, Sent: []models.MessageRequest{}, Received: []models.MessageRequest{}}
	for _, request := range all {
		ok, err := genders.opposite(request.SenderHandle, request.RecipientHandle)
		if err != nil {
			return nil, s.internal("❌ Failed to fetch identities", err, "requestId", request.RequestID)
		}
		if !ok {
			list.Flagged++
			s.log.Warn("⚠️ Request parties no longer have opposite genders", "requestId", request.RequestID)
			continue
		}
		list.Requests = append(list.Requests, request)
		if request.SenderHandle == identityID {
			list.Sent = append(list.Sent, request)
		} else {
			list.Received = append(list.Received, request)
		}
	}

	newestFirst := func(items []models.MessageRequest) {
		sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	}
	newestFirst(list.Requests)
	newestFirst(list.Sent)
	newestFirst(list.Received)
	return list, nil
}

// ListMatches returns every match of the identity, newest first, with the
// same read-side gender guard as ListRequests.
func (s *MatchmakingService) ListMatches(ctx context.Context, identityID string) (*MatchList, error) {
	matches, err := s.matches.ListMatchesForUser(ctx, identityID)
	if err != nil {
		return nil, s.internal("❌ Failed to fetch matches", err, "userId", identityID)
	}

	genders := s.genderReader(ctx)
	list := &MatchList{Matches: []models.MatchView{}}
	for _, match := range matches {
		ok, err := genders.opposite(match.User1Handle, match.User2Handle)
		if err != nil {
			return nil, s.internal("❌ Failed to fetch identities", err, "matchId", match.MatchID)
		}
		if !ok {
			list.Flagged++
			s.log.Warn("⚠️ Match parties no longer have opposite genders", "matchId", match.MatchID)
			continue
		}
		list.Matches = append(list.Matches, models.MatchView{
			MatchID:   match.MatchID,
			User1:     models.Participant{ID: match.User1Handle, Gender: genders.cache[match.User1Handle]},
			User2:     models.Participant{ID: match.User2Handle, Gender: genders.cache[match.User2Handle]},
			Status:    match.Status,
			CreatedAt: match.CreatedAt,
		})
	}
	sort.Slice(list.Matches, func(i, j int) bool { return list.Matches[i].CreatedAt.After(list.Matches[j].CreatedAt) })
	return list, nil
}

// confirmOppositeGenders re-reads both parties and fails when their genders
// no longer differ. A party that disappeared counts as a violation.
func (s *MatchmakingService) confirmOppositeGenders(ctx context.Context, match *models.Match) (*models.MatchView, error) {
	genders := s.genderReader(ctx)
	ok, err := genders.opposite(match.User1Handle, match.User2Handle)
	if err != nil {
		return nil, s.internal("❌ Failed to re-read identities", err, "matchId", match.MatchID)
	}
	if !ok {
		s.log.Error("🚨 Gender invariant violated",
			"matchId", match.MatchID,
			"user1", match.User1Handle, "gender1", genders.cache[match.User1Handle],
			"user2", match.User2Handle, "gender2", genders.cache[match.User2Handle],
		)
		return nil, newError(CodeGenderInvariantViolation, "Matching is temporarily unavailable, please try again")
	}
	return &models.MatchView{
		MatchID:   match.MatchID,
		User1:     models.Participant{ID: match.User1Handle, Gender: genders.cache[match.User1Handle]},
		User2:     models.Participant{ID: match.User2Handle, Gender: genders.cache[match.User2Handle]},
		Status:    match.Status,
		CreatedAt: match.CreatedAt,
	}, nil
}

// compensate deletes records written by a failed RequestMatch run.
func (s *MatchmakingService) compensate(ctx context.Context, matchID, requestID string) {
	if requestID != "" {
		if err := s.requests.DeleteRequest(ctx, requestID); err != nil {
			s.log.Error("❌ Compensation failed, orphaned request", "requestId", requestID, "error", err)
		}
	}
	if err := s.matches.DeleteMatch(ctx, matchID); err != nil {
		s.log.Error("❌ Compensation failed, orphaned match", "matchId", matchID, "error", err)
	}
	s.log.Info("↩️ Match attempt rolled back", "matchId", matchID, "requestId", requestID)
}

// revertRequest puts a request answered with status from back to pending.
func (s *MatchmakingService) revertRequest(ctx context.Context, requestID, from string) {
	if _, err := s.requests.UpdateRequestStatus(ctx, requestID, from, models.StatusPending); err != nil {
		s.log.Error("❌ Failed to revert request", "requestId", requestID, "error", err)
	}
}

func (s *MatchmakingService) statusErr(msg string, err error, requestID string) error {
	if errors.Is(err, repositories.ErrStatusConflict) {
		return newError(CodeAlreadyResolved, "This request has already been answered")
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(CodeNotFound, "Message request not found")
	}
	return s.internal(msg, err, "requestId", requestID)
}

func (s *MatchmakingService) internal(msg string, err error, args ...any) error {
	s.log.Error(msg, append(args, "error", err)...)
	return wrapError(CodeInternal, msg, err)
}

// genderReader reads each identity once per call. It never outlives the call.
type genderReader struct {
	ctx        context.Context
	identities IdentityStore
	cache      map[string]string
}

func (s *MatchmakingService) genderReader(ctx context.Context) *genderReader {
	return &genderReader{ctx: ctx, identities: s.identities, cache: map[string]string{}}
}

func (g *genderReader) gender(userID string) (string, error) {
	if gender, ok := g.cache[userID]; ok {
		return gender, nil
	}
	profile, err := g.identities.FindByID(g.ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		g.cache[userID] = ""
		return "", nil
	}
	if err != nil {
		return "", err
	}
	g.cache[userID] = profile.Gender
	return profile.Gender, nil
}

func (g *genderReader) opposite(a, b string) (bool, error) {
	genderA, err := g.gender(a)
	if err != nil {
		return false, err
	}
	genderB, err := g.gender(b)
	if err != nil {
		return false, err
	}
	return models.IsBinaryGender(genderA) && models.IsBinaryGender(genderB) && genderA != genderB, nil
}
