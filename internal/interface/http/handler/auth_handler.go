package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/user"
)

type AuthUseCases struct {
	PhoneLogin      *user.PhoneLoginUseCase
	AdminLogin      *user.AdminLoginUseCase
	Refresh         *user.RefreshUseCase
	ValidateSwitch  *user.ValidateRoleSwitchUseCase
	SwitchRole      *user.SwitchRoleUseCase
	GetMe           *user.GetMeUseCase
	SetVerification *user.SetVerificationUseCase
	Tokens          user.TokenIssuer
}

type AuthHandler struct {
	uc AuthUseCases
}

func NewAuthHandler(uc AuthUseCases) *AuthHandler {
	return &AuthHandler{uc: uc}
}

func toAuthResponse(r *user.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:    dto.ToUserResponse(r.User),
		Tokens:  dto.ToTokensResponse(r.Tokens),
		Created: r.Created,
	}
}

func (h *AuthHandler) PhoneLogin(c *gin.Context) {
	var req dto.PhoneLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.uc.PhoneLogin.Execute(c.Request.Context(), req.IDToken, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Created {
		response.Created(c, toAuthResponse(result))
		return
	}
	response.Success(c, toAuthResponse(result))
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req dto.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.uc.AdminLogin.Execute(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toAuthResponse(result))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.uc.Refresh.Execute(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToTokensResponse(pair))
}

func (h *AuthHandler) RoleCheck(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	check, err := h.uc.ValidateSwitch.ExecuteForUser(c.Request.Context(), userID, c.Query("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.RoleCheckResponse{
		Allowed:       check.Allowed,
		Reason:        check.Reason,
		ConflictCount: check.ConflictCount,
		Conflicts:     check.Conflicts,
	})
}

// SwitchRole меняет роль и выдаёт новую пару токенов с актуальной ролью.
func (h *AuthHandler) SwitchRole(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SwitchRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.uc.SwitchRole.Execute(c.Request.Context(), userID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	pair, err := h.uc.Tokens.GeneratePair(updated)
	if err != nil {
		response.Error(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены"))
		return
	}
	response.Success(c, dto.SwitchRoleResponse{
		User:   dto.ToUserResponse(updated),
		Tokens: dto.ToTokensResponse(pair),
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	me, err := h.uc.GetMe.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MeResponse{
		User:    dto.ToUserResponse(me.User),
		Profile: dto.ToProfileResponse(me.Profile),
		Balance: me.Wallet.Balance,
	})
}

func (h *AuthHandler) SetVerification(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetVerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.uc.SetVerification.Execute(c.Request.Context(), adminID, targetID, req.Status, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProfileResponse(profile))
}
