package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/Aliwaris512/Apploye/config"
)

var (
	ErrExtensionNotAllowed = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件超出大小限制")
	ErrFileNotFound        = errors.New("文件不存在")
)

// ScreenshotStore 截图文件存储
// 目录布局：<dir>/<user_id>/<uuid><ext>，缩略图在 <dir>/thumbnails 下平行存放
type ScreenshotStore struct {
	dir            string
	maxSize        int64
	allowedExt     map[string]bool
	thumbnailWidth int
}

// NewScreenshotStore 根据上传配置创建截图存储
func NewScreenshotStore(cfg *config.UploadConfig) *ScreenshotStore {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &ScreenshotStore{
		dir:            cfg.Dir,
		maxSize:        cfg.MaxSizeMB << 20,
		allowedExt:     allowed,
		thumbnailWidth: cfg.ThumbnailWidth,
	}
}

// MaxSize 上传大小上限（字节）
func (s *ScreenshotStore) MaxSize() int64 { return s.maxSize }

// Save 校验并落盘一张截图，返回相对路径 <user_id>/<uuid><ext>
func (s *ScreenshotStore) Save(userID, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".png"
	}
	if !s.allowedExt[ext] {
		return "", ErrExtensionNotAllowed
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrFileTooLarge
	}

	userDir := filepath.Join(s.dir, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	relPath := filepath.Join(userID, uuid.New().String()+ext)
	if err := os.WriteFile(filepath.Join(s.dir, relPath), data, 0o644); err != nil {
		return "", fmt.Errorf("写入截图文件失败: %w", err)
	}

	return relPath, nil
}

// CreateThumbnail 为已保存的截图生成等比缩略图
// 失败时返回原图相对路径，调用方按降级处理
func (s *ScreenshotStore) CreateThumbnail(relPath string) (string, error) {
	src, err := imaging.Open(filepath.Join(s.dir, relPath))
	if err != nil {
		return relPath, fmt.Errorf("读取截图失败: %w", err)
	}

	thumb := imaging.Resize(src, s.thumbnailWidth, 0, imaging.Lanczos)

	thumbRel := filepath.Join("thumbnails", relPath)
	thumbAbs := filepath.Join(s.dir, thumbRel)
	if err := os.MkdirAll(filepath.Dir(thumbAbs), 0o755); err != nil {
		return relPath, fmt.Errorf("创建缩略图目录失败: %w", err)
	}
	if err := imaging.Save(thumb, thumbAbs); err != nil {
		return relPath, fmt.Errorf("写入缩略图失败: %w", err)
	}

	return thumbRel, nil
}

// Resolve 将相对路径解析为绝对路径，校验文件存在且未越出存储目录
func (s *ScreenshotStore) Resolve(relPath string) (string, error) {
	abs := filepath.Join(s.dir, filepath.Clean(relPath))
	if !strings.HasPrefix(abs, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", ErrFileNotFound
	}
	if _, err := os.Stat(abs); err != nil {
		return "", ErrFileNotFound
	}
	return abs, nil
}

// ReportStore 报表产物存储
type ReportStore struct {
	dir string
}

// NewReportStore 创建报表存储，保证目录存在
func NewReportStore(cfg *config.ReportsConfig) (*ReportStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建报表目录失败: %w", err)
	}
	return &ReportStore{dir: cfg.Dir}, nil
}

// Path 返回指定文件名在报表目录下的绝对路径
func (s *ReportStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Resolve 校验报表文件存在并返回绝对路径
func (s *ReportStore) Resolve(filename string) (string, error) {
	abs := filepath.Join(s.dir, filepath.Base(filename))
	if _, err := os.Stat(abs); err != nil {
		return "", ErrFileNotFound
	}
	return abs, nil
}
