package service

// 分页参数，页码从 1 开始
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 100000
)

// normalizePage 规范化分页参数并返回偏移量
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}
