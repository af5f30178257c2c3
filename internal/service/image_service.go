package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"plantdiag/internal/models"
	"plantdiag/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ImageService 图片上传与读取
type ImageService struct {
	images ImageStore
	files  storage.FileStorage
	logger logrus.FieldLogger
}

// NewImageService 创建图片服务
func NewImageService(images ImageStore, files storage.FileStorage, logger logrus.FieldLogger) *ImageService {
	return &ImageService{images: images, files: files, logger: logger}
}

// Upload 保存图片文件并创建图片记录，记录写入失败时删除已保存的文件
func (s *ImageService) Upload(ctx context.Context, userID uint, filename, contentType string, data []byte) (*models.Image, error) {
	if userID == 0 {
		return nil, invalidInput("user_id 不能为空")
	}
	if len(data) == 0 {
		return nil, invalidInput("图片内容为空")
	}

	name := "images/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	if err := s.files.Upload(ctx, name, data); err != nil {
		return nil, fmt.Errorf("保存图片失败: %w", err)
	}

	image := &models.Image{
		UserID:      userID,
		Filename:    path.Base(filename),
		Path:        name,
		ContentType: contentType,
		Size:        len(data),
	}
	if err := s.images.Create(ctx, image); err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), name); delErr != nil {
			s.logger.WithFields(logrus.Fields{"path": name, "error": delErr}).Warn("清理图片文件失败")
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.WithFields(logrus.Fields{"image_id": image.ID, "path": name, "size": image.Size}).Info("图片已上传")
	return image, nil
}

// Get 获取图片记录
func (s *ImageService) Get(ctx context.Context, id uint) (*models.Image, error) {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "图片", id)
	}
	return image, nil
}

// Download 获取图片记录及文件内容
func (s *ImageService) Download(ctx context.Context, id uint) (*models.Image, []byte, error) {
	image, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.files.Download(ctx, image.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("读取图片失败: %w", err)
	}
	return image, data, nil
}
