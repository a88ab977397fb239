package handler

import (
	"net/http"
	"net/url"
	"strings"

	"caseflow.dev/caseflowlearn/internal/middleware"
	"caseflow.dev/caseflowlearn/internal/modules/user/dto"
	user "caseflow.dev/caseflowlearn/internal/modules/user/service"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "caseflow_oauth_state"

type AuthHandler struct {
	authService user.AuthService
	frontendURL string
}

func NewAuthHandler(authService user.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var input dto.SignUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.authService.SignUp(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var input dto.SignInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	u, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "profile": u.Profile})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	session, err := h.authService.Refresh(c.Request.Context(), middleware.BearerToken(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.authService.SignOut(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Message(c, http.StatusOK, "signed out")
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GoogleLogin(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code not found"})
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	session, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/student-auth?error="+url.QueryEscape(apperror.PublicMessage(err)))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/student-dashboard#access_token="+url.QueryEscape(session.AccessToken))
}
