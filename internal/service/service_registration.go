// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mailer"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// otpShapePattern accepts exactly six digits, nothing else. Checked before
// the code ever reaches the token layer.
var otpShapePattern = regexp.MustCompile(`^\d{6}$`)

// userCodeAllocationRetries bounds the random draw for a free 6-digit staff
// code before the signup is refused.
const userCodeAllocationRetries = 5

// registrationService drives the created → otp_verified → complete pipeline.
//
// Transitions are strictly forward and guarded in the store; a stale or
// out-of-order request is answered with a silent restart outcome instead of
// an error, never revealing whether an account is mid-pipeline.
type registrationService struct {
	users    store.UserRepository
	attempts store.AttemptRepository
	tokens   TokenService
	limiter  RateLimiter
	sender   mailer.Sender

	baseURL         string
	defaultRedirect string
	bcryptCost      int

	now    func() time.Time
	logger *logger.Logger
}

// NewRegistrationService constructs a [RegistrationService].
func NewRegistrationService(users store.UserRepository, attempts store.AttemptRepository,
	tokens TokenService, limiter RateLimiter, sender mailer.Sender,
	sec config.Security, app config.App, logger *logger.Logger) RegistrationService {
	return &registrationService{
		users:           users,
		attempts:        attempts,
		tokens:          tokens,
		limiter:         limiter,
		sender:          sender,
		baseURL:         strings.TrimRight(app.BaseURL, "/"),
		defaultRedirect: app.DefaultRedirect,
		bcryptCost:      sec.BcryptCost,
		now:             time.Now,
		logger:          logger,
	}
}

// Register runs the pipeline entry: validation, account creation with the
// unverified role, initial OTP plus email-verification token, and the
// combined notification. A failed send never rolls the account back; the
// outcome carries a warning instead.
func (s *registrationService) Register(ctx context.Context, input RegistrationInput, meta models.RequestMeta) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	// Validation verdicts come first: malformed input never costs a
	// ledger count.
	if !ValidUsername(input.Username) {
		return models.Rejected{Reason: MsgUsernameInvalid, Severity: models.SeverityDanger}, nil
	}
	if !ValidEmail(input.Email) {
		return models.Rejected{Reason: MsgEmailInvalid, Severity: models.SeverityDanger}, nil
	}
	if !ValidSignupPassword(input.Password) {
		return models.Rejected{Reason: MsgPasswordPolicy, Severity: models.SeverityDanger}, nil
	}
	if input.Password != input.ConfirmPassword {
		return models.Rejected{Reason: MsgPasswordMatch, Severity: models.SeverityDanger}, nil
	}

	allowed, err := s.limiter.Allow(ctx, models.ScopeSignup, meta.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return models.Rejected{Reason: MsgTooManyAttempts, Severity: models.SeverityWarning}, nil
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hash: %w", err)
	}

	user, err := s.createWithFreshCode(ctx, models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		RoleName:     "unverified",
		SignupState:  models.SignupCreated,
		CreatedAt:    s.now(),
	})
	switch {
	case errors.Is(err, store.ErrUsernameAlreadyExists):
		s.record(ctx, input.Username, models.KindUsername, meta, false)
		return models.Rejected{Reason: MsgUsernameTaken, Severity: models.SeverityDanger}, nil
	case errors.Is(err, store.ErrEmailAlreadyExists):
		s.record(ctx, input.Email, models.KindEmail, meta, false)
		return models.Rejected{Reason: MsgEmailTaken, Severity: models.SeverityDanger}, nil
	case err != nil:
		return nil, fmt.Errorf("account creation: %w", err)
	}

	s.record(ctx, input.Username, models.KindUsername, meta, true)
	log.Info().Int64("user_id", user.UserID).Msg("account created, pipeline entered")

	pre := &models.PreAuthState{TempUserID: user.UserID, TempEmail: user.Email}

	// Creation is committed; issuing or sending failures only downgrade
	// the notice.
	if err := s.sendSignupMail(ctx, user); err != nil {
		log.Err(err).Int64("user_id", user.UserID).Msg("signup notification failed after commit")
		return models.NeedsInput{
			Stage:    models.SignupCreated,
			Notice:   MsgSendFailed,
			Severity: models.SeverityWarning,
			PreAuth:  pre,
		}, nil
	}

	return models.NeedsInput{
		Stage:    models.SignupCreated,
		Notice:   MsgOTPSent,
		Severity: models.SeverityInfo,
		PreAuth:  pre,
	}, nil
}

// VerifyOTP handles the initial code. Acceptance advances the stored state
// and issues the final code for the completion step.
func (s *registrationService) VerifyOTP(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	if pre.TempUserID == 0 {
		return models.NeedsInput{}, nil
	}
	if !otpShapePattern.MatchString(code) {
		return models.Rejected{Reason: MsgOTPShape, Severity: models.SeverityDanger}, nil
	}

	if err := s.tokens.VerifyOTP(ctx, pre.TempUserID, code); err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			s.record(ctx, pre.TempEmail, models.KindEmail, meta, false)
			return models.Rejected{Reason: MsgOTPInvalid, Severity: models.SeverityDanger}, nil
		}
		return nil, fmt.Errorf("otp verify: %w", err)
	}

	if err := s.users.AdvanceSignupState(ctx, pre.TempUserID, models.SignupCreated, models.SignupOTPVerified); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return s.resumeOutcome(ctx, pre.TempUserID)
		}
		return nil, fmt.Errorf("state transition: %w", err)
	}

	s.record(ctx, pre.TempEmail, models.KindEmail, meta, true)

	next := &models.PreAuthState{TempUserID: pre.TempUserID, TempEmail: pre.TempEmail, OTPVerified: true}

	if err := s.sendFinalOTPMail(ctx, pre.TempUserID); err != nil {
		log.Err(err).Int64("user_id", pre.TempUserID).Msg("final code notification failed after transition")
		return models.NeedsInput{
			Stage:    models.SignupOTPVerified,
			Notice:   MsgFinalSendFailed,
			Severity: models.SeverityWarning,
			PreAuth:  next,
		}, nil
	}

	return models.NeedsInput{
		Stage:    models.SignupOTPVerified,
		Notice:   MsgFinalOTPSent,
		Severity: models.SeverityInfo,
		PreAuth:  next,
	}, nil
}

// Complete handles the final code. Reaching it without the OTP-verified
// flag is a sequence violation answered with a silent restart.
func (s *registrationService) Complete(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	if pre.TempUserID == 0 || !pre.OTPVerified {
		return models.NeedsInput{}, nil
	}
	if !otpShapePattern.MatchString(code) {
		return models.Rejected{Reason: MsgOTPShape, Severity: models.SeverityDanger}, nil
	}

	if err := s.tokens.VerifyOTP(ctx, pre.TempUserID, code); err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			s.record(ctx, pre.TempEmail, models.KindEmail, meta, false)
			return models.Rejected{Reason: MsgOTPInvalid, Severity: models.SeverityDanger}, nil
		}
		return nil, fmt.Errorf("otp verify: %w", err)
	}

	if err := s.users.CompleteSignup(ctx, pre.TempUserID); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return s.resumeOutcome(ctx, pre.TempUserID)
		}
		return nil, fmt.Errorf("completion: %w", err)
	}

	user, err := s.users.FindByID(ctx, pre.TempUserID)
	if err != nil {
		return nil, fmt.Errorf("completed user lookup: %w", err)
	}

	s.record(ctx, pre.TempEmail, models.KindEmail, meta, true)
	log.Info().Int64("user_id", user.UserID).Msg("registration completed")

	notice, severity := MsgWelcome, models.SeveritySuccess
	msg := mailer.WelcomeMessage(user.Username)
	if err := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		log.Err(err).Int64("user_id", user.UserID).Msg("welcome notification failed after completion")
	}

	now := s.now()
	return models.Success{
		Redirect: SafeRedirect(user.RedirectPath, s.defaultRedirect),
		Notice:   notice,
		Severity: severity,
		Session: &models.SessionData{
			UserID:       user.UserID,
			Username:     user.Username,
			RoleID:       user.RoleID,
			RoleName:     user.RoleName,
			LoginSuccess: true,
			LoginTime:    now,
			LastActivity: now,
			IPAddress:    meta.IP,
			UserAgent:    meta.UserAgent,
		},
	}, nil
}

// ResendOTP supersedes the live code for whichever stage the caller is in.
func (s *registrationService) ResendOTP(ctx context.Context, pre models.PreAuthState) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	if pre.TempUserID == 0 {
		return models.NeedsInput{}, nil
	}

	stage := models.SignupCreated
	if pre.OTPVerified {
		stage = models.SignupOTPVerified
	}

	user, err := s.users.FindByID(ctx, pre.TempUserID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.NeedsInput{}, nil
		}
		return nil, fmt.Errorf("pending user lookup: %w", err)
	}

	otp, err := s.tokens.IssueOTP(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("otp reissue: %w", err)
	}

	msg := mailer.FinalOTPMessage(user.Username, otp.Code)
	if err := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		log.Err(err).Int64("user_id", user.UserID).Msg("resend notification failed")
		return models.NeedsInput{
			Stage:    stage,
			Notice:   MsgResendFailed,
			Severity: models.SeverityWarning,
			PreAuth:  &pre,
		}, nil
	}

	return models.NeedsInput{
		Stage:    stage,
		Notice:   MsgOTPResent,
		Severity: models.SeverityInfo,
		PreAuth:  &pre,
	}, nil
}

// VerifyEmailLink redeems the mailed confirmation token and flips
// email_verified. It does not advance the pipeline; the OTP steps own that.
func (s *registrationService) VerifyEmailLink(ctx context.Context, tokenValue string) (models.Outcome, error) {
	userID, err := s.tokens.Redeem(ctx, tokenValue, models.PurposeEmailVerify)
	if err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			return models.Rejected{Reason: MsgVerifyLinkInvalid, Severity: models.SeverityDanger}, nil
		}
		return nil, fmt.Errorf("link redeem: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return nil, fmt.Errorf("email flag update: %w", err)
	}

	return models.Success{Redirect: "/login", Notice: MsgEmailConfirmed, Severity: models.SeveritySuccess}, nil
}

// createWithFreshCode draws random staff codes until the insert lands or the
// retry budget runs out. Collisions on a 6-digit space are rare but real.
func (s *registrationService) createWithFreshCode(ctx context.Context, user models.User) (models.User, error) {
	for i := 0; i < userCodeAllocationRetries; i++ {
		code, err := randomUserCode()
		if err != nil {
			return models.User{}, err
		}
		user.UserCode = code

		created, err := s.users.CreateUser(ctx, user)
		if errors.Is(err, store.ErrUserCodeAlreadyExists) {
			continue
		}
		return created, err
	}
	return models.User{}, ErrCodeExhausted
}

// resumeOutcome maps the stored pipeline state onto the outcome a stale
// request should see instead of a conflict error.
func (s *registrationService) resumeOutcome(ctx context.Context, userID int64) (models.Outcome, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.NeedsInput{}, nil
		}
		return nil, fmt.Errorf("pipeline state lookup: %w", err)
	}

	switch user.SignupState {
	case models.SignupComplete:
		return models.Success{Redirect: "/login"}, nil
	case models.SignupOTPVerified:
		return models.NeedsInput{
			Stage: models.SignupOTPVerified,
			PreAuth: &models.PreAuthState{
				TempUserID: user.UserID, TempEmail: user.Email, OTPVerified: true,
			},
		}, nil
	default:
		return models.NeedsInput{
			Stage: models.SignupCreated,
			PreAuth: &models.PreAuthState{
				TempUserID: user.UserID, TempEmail: user.Email,
			},
		}, nil
	}
}

func (s *registrationService) sendSignupMail(ctx context.Context, user models.User) error {
	otp, err := s.tokens.IssueOTP(ctx, user.UserID)
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(ctx, user.UserID, models.PurposeEmailVerify)
	if err != nil {
		return err
	}

	link := s.baseURL + "/signup/verify-email?token=" + token.Token
	msg := mailer.SignupMessage(user.Username, otp.Code, link)
	return s.sender.Send(ctx, user.Email, msg.Subject, msg.Body)
}

func (s *registrationService) sendFinalOTPMail(ctx context.Context, userID int64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	otp, err := s.tokens.IssueOTP(ctx, userID)
	if err != nil {
		return err
	}

	msg := mailer.FinalOTPMessage(user.Username, otp.Code)
	return s.sender.Send(ctx, user.Email, msg.Subject, msg.Body)
}

// record appends one signup ledger row; failures are logged and swallowed.
func (s *registrationService) record(ctx context.Context, identifier string, kind models.IdentifierKind,
	meta models.RequestMeta, success bool) {
	err := s.attempts.Insert(ctx, models.Attempt{
		Identifier: identifier,
		Scope:      models.ScopeSignup,
		Kind:       kind,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Success:    success,
		CreatedAt:  s.now(),
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*registrationService.record").Msg("error: attempt ledger insert failed")
	}
}

// randomUserCode draws a uniform 6-digit staff code.
func randomUserCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
