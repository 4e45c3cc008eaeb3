package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"louage/internal/domain"
	"louage/internal/middleware"
	"louage/internal/service"
)

const tokenTTL = 30 * 24 * time.Hour

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	directory *service.UserDirectory
	trips     *service.TripService
	jwtSecret string // empty when auth is disabled
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(directory *service.UserDirectory, trips *service.TripService, jwtSecret string) *UserHandler {
	return &UserHandler{directory: directory, trips: trips, jwtSecret: jwtSecret}
}

// RegisterRequest is the HTTP request body for user registration.
type RegisterRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Role  string `json:"role" binding:"required,oneof=passenger driver"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	Token     string `json:"token,omitempty"`
}

// PunctualityResponse is the HTTP response for a driver's punctuality.
type PunctualityResponse struct {
	DriverID   string  `json:"driver_id"`
	Recorded   int     `json:"recorded_trips"`
	OnTime     int     `json:"on_time_trips"`
	OnTimeRate float64 `json:"on_time_rate"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.directory.Register(c.Request.Context(), service.RegisterUserRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Role:  domain.UserRole(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := toUserResponse(user)
	if h.jwtSecret != "" {
		token, err := middleware.IssueToken(h.jwtSecret, user.ID, string(user.Role), tokenTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Token = token
	}

	respondJSON(c, http.StatusCreated, response)
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.directory.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// GetAll handles GET /v1/users
func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.directory.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}

	c.JSON(http.StatusOK, response)
}

// Punctuality handles GET /v1/drivers/:id/punctuality
func (h *UserHandler) Punctuality(c *gin.Context) {
	driverID := c.Param("id")

	stats, err := h.trips.DriverPunctuality(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PunctualityResponse{
		DriverID:   driverID,
		Recorded:   stats.Recorded,
		OnTime:     stats.OnTime,
		OnTimeRate: stats.Rate(),
	})
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(timeLayout),
	}
}
