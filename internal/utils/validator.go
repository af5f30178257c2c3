package utils

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 参数校验失败
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Validator 参数校验器，启动时创建一次后只读使用
type Validator struct {
	validate *validator.Validate
	markName *regexp.Regexp
}

// NewValidator 创建校验器并注册自定义规则
func NewValidator() *Validator {
	v := &Validator{
		validate: validator.New(),
		markName: regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`),
	}

	// 错误信息使用 json/yaml 字段名
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "yaml", "form"} {
			name := strings.Split(f.Tag.Get(key), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})

	v.validate.RegisterValidation("mark_name", v.validateMarkName)
	v.validate.RegisterValidation("severity", validateSeverity)
	return v
}

// validateMarkName 标记类型名称：小写字母开头，仅含小写字母、数字和下划线
func (v *Validator) validateMarkName(fl validator.FieldLevel) bool {
	return v.markName.MatchString(fl.Field().String())
}

// validateSeverity 严重程度在 [0,1] 内
func validateSeverity(fl validator.FieldLevel) bool {
	var f float64
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f = fl.Field().Float()
	default:
		return false
	}
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

// Validate 校验结构体
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError 格式化验证错误
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s是必填字段", field)
		case "min":
			message = fmt.Sprintf("%s不能小于%s", field, param)
		case "max":
			message = fmt.Sprintf("%s不能大于%s", field, param)
		case "gt":
			message = fmt.Sprintf("%s必须大于%s", field, param)
		case "gtefield":
			message = fmt.Sprintf("%s不能小于%s", field, param)
		case "mark_name":
			message = fmt.Sprintf("%s只能包含小写字母、数字和下划线，以字母开头，长度2-50", field)
		case "severity":
			message = fmt.Sprintf("%s必须在 [0,1] 之间", field)
		default:
			message = fmt.Sprintf("%s验证失败: %s", field, e.Tag())
		}
		messages = append(messages, message)
	}
	return &ValidationError{Messages: messages}
}
