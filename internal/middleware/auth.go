package middleware

import (
	"strings"

	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ctxUserID    = "user_id"
	ctxUsername  = "username"
	ctxCompanyID = "company_id"
	ctxIsAdmin   = "is_admin"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "未认证")
			c.Abort()
			return
		}

		// 解析Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Unauthorized(c, "无效的认证格式")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			utils.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		// 将用户信息存入上下文
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxCompanyID, claims.CompanyID)
		c.Set(ctxIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetCompanyID 从上下文获取公司ID
func GetCompanyID(c *gin.Context) (uint, bool) {
	companyID, exists := c.Get(ctxCompanyID)
	if !exists {
		return 0, false
	}
	return companyID.(uint), true
}

// IsAdmin 从上下文判断是否为管理员
func IsAdmin(c *gin.Context) bool {
	isAdmin, exists := c.Get(ctxIsAdmin)
	if !exists {
		return false
	}
	return isAdmin.(bool)
}
