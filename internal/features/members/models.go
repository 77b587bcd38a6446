// Package members управляет пользователями витрины: регистрацией по /start
// и реферальной привязкой. models.go описывает структуры данных.
package members

import "time"

// Member представляет пользователя бота в базе данных.
// Запись создаётся при первом /start; вместе с ней заводится счёт
// в леджере и состояние квоты спинов.
type Member struct {
	ID        int64     `db:"id"`         // Автоинкрементный ID записи в БД
	UserID    int64     `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string    `db:"username"`   // @username (может быть пустым)
	FirstName string    `db:"first_name"` // Имя пользователя
	LastName  string    `db:"last_name"`  // Фамилия (может быть пустой)
	InvitedBy *int64    `db:"invited_by"` // user_id пригласившего (nil, если пришёл сам)
	IsBanned  bool      `db:"is_banned"`  // Флаг бана
	JoinedAt  time.Time `db:"joined_at"`  // Когда впервые запустил бота
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpdateInfo содержит данные для обновления информации о пользователе.
// Используется, когда пользователь вернулся и его имя/username могли измениться.
type UpdateInfo struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}
