package admin

import (
	"errors"
	"strings"

	"kasa-backend/internal/database"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BranchResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Address string  `json:"address" validate:"max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

type UpdateBranchRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

// CreateBranchUserRequest adds a branch admin or a cashier.
type CreateBranchUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=100"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"required,oneof=branch_admin cashier"`
}

type BranchUserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	BranchID  *uint           `json:"branch_id"`
	CreatedAt string          `json:"created_at"`
}

func toBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Phone:     b.Phone,
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func findBranch(c *fiber.Ctx) (*models.Branch, error) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	var branch models.Branch
	if err := database.DB.WithContext(c.UserContext()).First(&branch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return nil, err
	}
	return &branch, nil
}

// ----------------------------------------
// BRANCH CRUD
// ----------------------------------------

func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		branch := models.Branch{
			Name:    strings.TrimSpace(body.Name),
			Address: strings.TrimSpace(body.Address),
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.WithContext(c.UserContext()).Create(&branch).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "a branch with this name already exists")
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(branch))
	}
}

func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.WithContext(c.UserContext()).Order("id ASC").Find(&branches).Error; err != nil {
			return err
		}

		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			res = append(res, toBranchResponse(b))
		}
		return c.JSON(res)
	}
}

func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c)
		if err != nil {
			return err
		}
		return c.JSON(toBranchResponse(*branch))
	}
}

func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c)
		if err != nil {
			return err
		}

		var body UpdateBranchRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "branch name cannot be empty")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.WithContext(c.UserContext()).Save(branch).Error; err != nil {
			return err
		}
		return c.JSON(toBranchResponse(*branch))
	}
}

// DeleteBranchHandler refuses branches that still own registers; their
// session history must stay attached.
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c)
		if err != nil {
			return err
		}

		var registers int64
		if err := database.DB.WithContext(c.UserContext()).
			Model(&models.CashRegister{}).
			Where("branch_id = ?", branch.ID).
			Count(&registers).Error; err != nil {
			return err
		}
		if registers > 0 {
			return fiber.NewError(fiber.StatusConflict, "branch still has cash registers")
		}

		if err := database.DB.WithContext(c.UserContext()).Delete(branch).Error; err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// BRANCH USERS
// ----------------------------------------

// POST /api/admin/branches/:id/users
func CreateBranchUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c)
		if err != nil {
			return err
		}

		var body CreateBranchUserRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "password could not be hashed")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			PasswordHash: string(hash),
			Role:         body.Role,
			BranchID:     &branch.ID,
		}

		if err := database.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "this email is already registered")
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(BranchUserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Role:      user.Role,
			BranchID:  user.BranchID,
			CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// GET /api/admin/branches/:id/users?role=cashier
func ListBranchUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, err := findBranch(c)
		if err != nil {
			return err
		}

		q := database.DB.WithContext(c.UserContext()).Where("branch_id = ?", branch.ID)
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}

		var users []models.User
		if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
			return err
		}

		res := make([]BranchUserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, BranchUserResponse{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				Role:      u.Role,
				BranchID:  u.BranchID,
				CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}
