package handler

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"plantdiag/internal/middleware"
	"plantdiag/internal/repository"
	"plantdiag/internal/utils"

	"github.com/gin-gonic/gin"
)

// dateLayout 查询参数中的日期格式
const dateLayout = "2006-01-02"

// paramID 解析路径中的ID参数，失败时已写入响应
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.BadRequest(c, fmt.Sprintf("无效的%s", name))
		return 0, false
	}
	return uint(id), true
}

// companyScope 普通用户只能看到本公司数据，管理员可通过 company_id 指定
func companyScope(c *gin.Context) (*uint, error) {
	if !middleware.IsAdmin(c) {
		companyID, _ := middleware.GetCompanyID(c)
		return &companyID, nil
	}
	raw := c.Query("company_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("无效的company_id: %s", raw)
	}
	companyID := uint(id)
	return &companyID, nil
}

// dateRange 解析日期范围，结束日期包含当天
func dateRange(minDate, maxDate string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if minDate != "" {
		t, err := time.Parse(dateLayout, minDate)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if maxDate != "" {
		t, err := time.Parse(dateLayout, maxDate)
		if err != nil {
			return nil, nil, err
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}

// predictionFilter 组装诊断查询条件
func predictionFilter(c *gin.Context, users, plots, labels []uint, minDate, maxDate string) (repository.PredictionFilter, error) {
	companyID, err := companyScope(c)
	if err != nil {
		return repository.PredictionFilter{}, err
	}
	from, to, err := dateRange(minDate, maxDate)
	if err != nil {
		return repository.PredictionFilter{}, fmt.Errorf("无效的日期: %w", err)
	}
	return repository.PredictionFilter{
		CompanyID: companyID,
		UserIDs:   users,
		PlotIDs:   plots,
		LabelIDs:  labels,
		MinDate:   from,
		MaxDate:   to,
	}, nil
}

// readImage 读取上传的图片文件
func readImage(c *gin.Context, field string, maxBytes int64) (string, string, []byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", "", nil, fmt.Errorf("缺少图片文件: %w", err)
	}
	if file.Size > maxBytes {
		return "", "", nil, fmt.Errorf("图片大小超过限制(%d字节)", maxBytes)
	}

	f, err := file.Open()
	if err != nil {
		return "", "", nil, fmt.Errorf("打开图片失败: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return "", "", nil, fmt.Errorf("读取图片失败: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", "", nil, fmt.Errorf("图片大小超过限制(%d字节)", maxBytes)
	}
	return file.Filename, file.Header.Get("Content-Type"), data, nil
}
