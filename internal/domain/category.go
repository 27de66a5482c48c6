package domain

import "time"

// Category — каноническая категория каталога. Товары ссылаются на категорию
// по идентификатору; справочник разрешает имя в каноническую запись.
type Category struct {
	ID        string
	Name      string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
