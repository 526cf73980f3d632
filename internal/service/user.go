package service

import (
	"errors"
	"time"

	"geochat/internal/auth"
	"geochat/internal/models"

	"gorm.io/gorm"
)

// UserService 封装用户目录相关的业务逻辑。
type UserService struct {
	db *gorm.DB
}

func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// UserDTO 是对外输出的用户数据，lat/lon/last_seen 未设置时输出 null。
type UserDTO struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	LastSeen *string  `json:"last_seen"`
}

func NewUserDTO(u models.User) UserDTO {
	var lastSeen *string
	if !u.LastSeen.IsZero() {
		s := u.LastSeen.UTC().Format(time.RFC3339)
		lastSeen = &s
	}
	return UserDTO{ID: u.ID, Username: u.Username, Lat: u.Lat, Lon: u.Lon, LastSeen: lastSeen}
}

// Register 注册新用户并签发 token，用户名重复返回 ErrUsernameTaken。
func (s *UserService) Register(username string) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	user := models.User{Username: username, Token: auth.NewToken(), LastSeen: time.Now().UTC()}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLocation 持久化最新坐标并刷新 last_seen，返回更新后的用户。
func (s *UserService) UpdateLocation(userID uint, lat, lon float64) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{"lat": lat, "lon": lon, "last_seen": now}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	user.Lat, user.Lon, user.LastSeen = &lat, &lon, now
	return &user, nil
}

// List 返回全部用户。
func (s *UserService) List() ([]UserDTO, error) {
	var users []models.User
	if err := s.db.Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserDTO(u))
	}
	return out, nil
}

// ByIDs 批量查询指定 id 的用户，供网关解析在线列表。
func (s *UserService) ByIDs(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.db.Where("id IN ?", ids).Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
