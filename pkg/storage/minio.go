// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例，未配置时为 nil。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端。Endpoint 为空时跳过。
func InitMinIO(cfg config.MinIOConfig) error {
	if cfg.Endpoint == "" {
		return nil
	}
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")
	return nil
}

// OpenObject 打开指定存储桶中的对象，调用方负责关闭返回的 reader。
func OpenObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	if MinioClient == nil {
		return nil, fmt.Errorf("minio client is not configured")
	}
	// 先 Stat，确保对象不存在时立即返回错误而不是在读取时才失败
	if _, err := MinioClient.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("stat object %s/%s: %w", bucketName, objectName, err)
	}
	obj, err := MinioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucketName, objectName, err)
	}
	return obj, nil
}
