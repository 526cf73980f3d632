package service

import (
	"time"

	"geochat/internal/models"

	"gorm.io/gorm"
)

// MessageService 封装私信相关的业务逻辑。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(gdb *gorm.DB) *MessageService {
	return &MessageService{db: gdb}
}

// MessageDTO 是对外输出的消息数据。
type MessageDTO struct {
	ID        uint      `json:"id"`
	From      uint      `json:"from"`
	To        uint      `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessageDTO(m models.Message) MessageDTO {
	return MessageDTO{ID: m.ID, From: m.SenderID, To: m.ReceiverID, Content: m.Content, Timestamp: m.CreatedAt.UTC()}
}

// Send 校验收件人存在后落库一条消息。收件人不存在返回 ErrRecipientNotFound。
func (s *MessageService) Send(senderID, receiverID uint, content string) (*models.Message, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", receiverID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRecipientNotFound
	}
	msg := models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content, CreatedAt: time.Now().UTC()}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// History 返回两个用户之间双向的全部消息，按时间升序（id 作平级排序）。
func (s *MessageService) History(userID, otherID uint) ([]MessageDTO, error) {
	var msgs []models.Message
	err := s.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at asc, id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageDTO(m))
	}
	return out, nil
}
