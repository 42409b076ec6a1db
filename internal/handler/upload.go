package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

var (
	ErrMissingFile = errors.New("file is required")
	ErrNotImage    = errors.New("file must be an image")
)

// sniffLen 与 mimetype 默认读取长度一致
const sniffLen = 3072

// storeUpload 写入上传文件，测试中可替换
var storeUpload = func(c *gin.Context, header *multipart.FileHeader, dst string) error {
	return c.SaveUploadedFile(header, dst)
}

// savedUpload 已落盘的上传文件
type savedUpload struct {
	Path     string
	Filename string
	MimeType string
}

// Remove 删除落盘文件，可重复调用
func (u *savedUpload) Remove() {
	if u == nil || u.Path == "" {
		return
	}
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		klog.Warningf("[Upload] 删除上传文件失败: path=%s, err=%v", u.Path, err)
		return
	}
	klog.V(6).Infof("[Upload] 已删除上传文件: path=%s", u.Path)
}

// saveImageUpload 校验表单字段 file 为图片后保存到 dir
// 文件名为 <uuid>_<原文件名>，并发请求同名文件互不覆盖
func saveImageUpload(c *gin.Context, dir string) (*savedUpload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}

	mimeType, err := detectMime(header)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		klog.V(6).Infof("[Upload] 拒绝非图片文件: filename=%s, mime=%s", header.Filename, mimeType)
		return nil, ErrNotImage
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	base := filepath.Base(header.Filename)
	path := filepath.Join(dir, uuid.NewString()+"_"+base)
	if err := storeUpload(c, header, path); err != nil {
		// 写入中途失败时可能已留下部分文件
		(&savedUpload{Path: path}).Remove()
		return nil, fmt.Errorf("save upload: %w", err)
	}

	klog.V(6).Infof("[Upload] 已保存上传文件: path=%s, mime=%s, size=%d", path, mimeType, header.Size)
	return &savedUpload{Path: path, Filename: header.Filename, MimeType: mimeType}, nil
}

func detectMime(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return mimetype.Detect(buf[:n]).String(), nil
}
