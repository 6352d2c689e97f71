package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepass/visitor-gate-backend/internal/config"
	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/internal/services"
	"github.com/gatepass/visitor-gate-backend/internal/utils"
	"github.com/gatepass/visitor-gate-backend/pkg/jwt"
	"github.com/gatepass/visitor-gate-backend/pkg/validator"
)

const refreshTokenCookie = "refresh_token"

// SendOTPRequest asks for a login code on a registered phone
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest exchanges a login code for a session
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// AdminLoginRequest is the password login used by super admins
type AdminLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest optionally carries the refresh token for non-browser clients
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandler handles login, session refresh, and logout
type AuthHandler struct {
	users         *database.UserRepository
	refreshTokens *database.RefreshTokenRepository
	jwtService    *jwt.Service
	otpService    *services.OTPService
	rateLimiter   *services.RateLimitService
	audit         *services.AuditService
	notifier      *services.NotificationService
	phoneVal      *validator.PhoneValidator
	cfg           *config.Config
	logger        *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	users *database.UserRepository,
	refreshTokens *database.RefreshTokenRepository,
	jwtService *jwt.Service,
	otpService *services.OTPService,
	rateLimiter *services.RateLimitService,
	audit *services.AuditService,
	notifier *services.NotificationService,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:         users,
		refreshTokens: refreshTokens,
		jwtService:    jwtService,
		otpService:    otpService,
		rateLimiter:   rateLimiter,
		audit:         audit,
		notifier:      notifier,
		phoneVal:      validator.NewPhoneValidator(),
		cfg:           cfg,
		logger:        logger,
	}
}

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "phone is required")
		return
	}

	phone, err := h.phoneVal.Validate(req.Phone)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	ip := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	user, err := h.users.GetUserByPhone(phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Same response as success so the endpoint cannot be used to
			// enumerate registered phone numbers
			respondOK(c, http.StatusOK, gin.H{"message": "If the number is registered, a code has been sent"})
			return
		}
		h.logger.WithError(err).Error("failed to look up user for OTP")
		respondRepoError(c, err)
		return
	}

	if !user.IsActive() {
		respondError(c, http.StatusForbidden, CodeForbidden, "This account has been suspended")
		return
	}

	if err := h.rateLimiter.CheckOTPRateLimit(phone, ip); err != nil {
		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			respondError(c, http.StatusTooManyRequests, CodeRateLimited, rateErr.Message)
			return
		}
		h.logger.WithError(err).Error("rate limit check failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	otp, err := h.otpService.GenerateOTP(phone, ip, userAgent)
	if err != nil {
		h.logger.WithError(err).Error("failed to generate login OTP")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to send code")
		return
	}

	if err := h.rateLimiter.RecordOTPRequest(phone, ip); err != nil {
		h.logger.WithError(err).Warn("failed to record OTP rate limit")
	}

	if err := h.notifier.SendLoginOTP(c.Request.Context(), phone, otp); err != nil {
		h.logger.WithError(err).WithField("phone", phone).Error("failed to deliver login OTP")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to send code")
		return
	}

	h.audit.LogOTPRequest(phone, ip, userAgent)

	respondOK(c, http.StatusOK, gin.H{
		"message":    "If the number is registered, a code has been sent",
		"expires_in": int(services.OTPExpiryDuration.Seconds()),
	})
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "phone and otp are required")
		return
	}

	phone, err := h.phoneVal.Validate(req.Phone)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	ip := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	valid, err := h.otpService.ValidateOTP(phone, req.OTP)
	if err != nil || !valid {
		h.audit.LogOTPFailed(phone, otpFailureReason(err), ip, userAgent)
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid or expired code")
		return
	}

	user, err := h.users.GetUserByPhone(phone)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	if !user.IsActive() {
		respondError(c, http.StatusForbidden, CodeForbidden, "This account has been suspended")
		return
	}

	h.issueSession(c, user, ip, userAgent)
}

// AdminLogin handles POST /api/v1/auth/admin-login. Super admins use a
// password in addition to owning the phone number.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "phone and password are required")
		return
	}

	phone, err := h.phoneVal.Validate(req.Phone)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	ip := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	user, err := h.users.GetUserByPhone(phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
			return
		}
		respondRepoError(c, err)
		return
	}

	if user.Role != models.RoleSuperAdmin || !user.PasswordHash.Valid {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
		return
	}

	if !user.IsActive() {
		respondError(c, http.StatusForbidden, CodeForbidden, "This account has been suspended")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		h.logger.WithFields(logrus.Fields{"phone": phone, "ip": ip}).Warn("admin login failed")
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
		return
	}

	h.issueSession(c, user, ip, userAgent)
}

// Refresh handles POST /api/v1/auth/refresh-token. The old refresh token is
// revoked and a new pair is issued (rotation).
func (h *AuthHandler) Refresh(c *gin.Context) {
	tokenString := h.extractRefreshToken(c)
	if tokenString == "" {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Refresh token required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(tokenString)
	if err != nil {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid refresh token")
		return
	}

	stored, err := h.refreshTokens.GetRefreshToken(tokenString)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}
	if stored == nil || stored.Revoked {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Refresh token is no longer valid")
		return
	}

	user, err := h.users.GetUserByID(claims.UserID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	if !user.IsActive() {
		respondError(c, http.StatusForbidden, CodeForbidden, "This account has been suspended")
		return
	}

	if err := h.refreshTokens.RevokeRefreshToken(tokenString); err != nil {
		h.logger.WithError(err).Warn("failed to revoke rotated refresh token")
	}

	ip := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	h.audit.LogTokenRefreshed(user.ID, ip, userAgent)

	h.issueSession(c, user, ip, userAgent)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if tokenString := h.extractRefreshToken(c); tokenString != "" {
		if err := h.refreshTokens.RevokeRefreshToken(tokenString); err != nil {
			h.logger.WithError(err).Warn("failed to revoke refresh token on logout")
		}
	}

	if userCtx, ok := middleware.GetUserContext(c); ok {
		h.audit.LogLogout(userCtx.UserID, utils.GetRealIP(c), utils.GetUserAgent(c))
	}

	h.clearSessionCookies(c)
	respondOK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	user, err := h.users.GetUserByID(userCtx.UserID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, user)
}

// issueSession generates the token pair, persists the refresh token, sets
// the session cookies, and writes the login response
func (h *AuthHandler) issueSession(c *gin.Context, user *models.User, ip, userAgent string) {
	propertyID := ""
	if user.PropertyID.Valid {
		propertyID = user.PropertyID.String
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Phone, user.Role, propertyID)
	if err != nil {
		h.logger.WithError(err).Error("failed to generate access token")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Phone)
	if err != nil {
		h.logger.WithError(err).Error("failed to generate refresh token")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	expiry, err := h.jwtService.GetTokenExpiry(refreshToken)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	if err := h.refreshTokens.StoreRefreshToken(user.ID, refreshToken, ip, userAgent, expiry); err != nil {
		h.logger.WithError(err).Error("failed to store refresh token")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	if err := h.users.RecordLogin(user.ID); err != nil {
		h.logger.WithError(err).Warn("failed to record login time")
	}

	h.audit.LogLogin(user.ID, user.Role, ip, userAgent)

	h.setSessionCookies(c, accessToken, refreshToken)

	respondOK(c, http.StatusOK, gin.H{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(h.cfg.JWT.AccessTokenExpiry.Seconds()),
	})
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		middleware.AccessTokenCookie, accessToken,
		int(h.cfg.JWT.AccessTokenExpiry.Seconds()),
		"/", h.cfg.JWT.CookieDomain, h.cfg.JWT.CookieSecure, true,
	)
	c.SetCookie(
		refreshTokenCookie, refreshToken,
		int(h.cfg.JWT.RefreshTokenExpiry.Seconds()),
		"/api/v1/auth", h.cfg.JWT.CookieDomain, h.cfg.JWT.CookieSecure, true,
	)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cfg.JWT.CookieDomain, h.cfg.JWT.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/api/v1/auth", h.cfg.JWT.CookieDomain, h.cfg.JWT.CookieSecure, true)
}

// extractRefreshToken reads the refresh token from the cookie or body
func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}

	return ""
}

func otpFailureReason(err error) string {
	switch {
	case err == nil:
		return "invalid_code"
	case errors.Is(err, services.ErrOTPExpired):
		return "expired"
	case errors.Is(err, services.ErrMaxAttemptsExceeded):
		return "max_attempts"
	case errors.Is(err, services.ErrNoOTPFound):
		return "no_otp"
	case errors.Is(err, services.ErrOTPAlreadyUsed):
		return "already_used"
	default:
		return "invalid_code"
	}
}
