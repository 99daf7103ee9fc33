/**
 * @module crypto_utils
 * @description 加密工具模块，负责集成凭证的加密存储与敏感字段脱敏
 * @architecture 加密工具集模式，无状态加解密
 * @documentReference 参考 ai_docs/storage_design.md 凭证加密一节
 * @stateFlow 无状态加密：明文 -> 加密算法 -> 密文 / 密文 -> 解密算法 -> 明文
 * @rules
 *   - 访问/刷新令牌落库前必须加密
 *   - 日志输出中的令牌必须脱敏
 *   - 加密算法需要使用业界标准
 * @dependencies
 *   - crypto/*: 加密算法
 *   - crypto/rand: 安全随机数
 *   - crypto/sha256: 密钥派生
 * @refs
 *   - service/storage/integration_store.go
 */

package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// CryptoUtils 加密工具
type CryptoUtils struct {
	defaultKey []byte
}

// NewCryptoUtils 创建新的加密工具实例
func NewCryptoUtils(key string) *CryptoUtils {
	if key == "" {
		key = "teampulse-default-key-32-chars!!"
	}

	// 密钥经SHA256派生为32字节（AES-256）
	hasher := sha256.New()
	hasher.Write([]byte(key))
	defaultKey := hasher.Sum(nil)

	return &CryptoUtils{
		defaultKey: defaultKey,
	}
}

// AESEncrypt AES加密
func (cu *CryptoUtils) AESEncrypt(plaintext string, key ...[]byte) (string, error) {
	var encryptKey []byte
	if len(key) > 0 && len(key[0]) > 0 {
		encryptKey = key[0]
	} else {
		encryptKey = cu.defaultKey
	}

	block, err := aes.NewCipher(encryptKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	// 生成随机IV
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("生成IV失败: %v", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)

	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, []byte(plaintext))

	// 将IV和密文合并并编码
	result := append(iv, ciphertext...)
	return base64.StdEncoding.EncodeToString(result), nil
}

// AESDecrypt AES解密
func (cu *CryptoUtils) AESDecrypt(ciphertext string, key ...[]byte) (string, error) {
	var decryptKey []byte
	if len(key) > 0 && len(key[0]) > 0 {
		decryptKey = key[0]
	} else {
		decryptKey = cu.defaultKey
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("解码base64失败: %v", err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("密文长度不足")
	}

	block, err := aes.NewCipher(decryptKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	// 分离IV和密文
	iv := data[:aes.BlockSize]
	ciphertextData := data[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)

	plaintext := make([]byte, len(ciphertextData))
	stream.XORKeyStream(plaintext, ciphertextData)

	return string(plaintext), nil
}

// SHA256Hash SHA256哈希
func (cu *CryptoUtils) SHA256Hash(data string) string {
	hasher := sha256.New()
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

// MaskToken 令牌脱敏，保留前4位和后4位
func (cu *CryptoUtils) MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// MaskEmail 邮箱脱敏
func (cu *CryptoUtils) MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email // 无效邮箱格式，不处理
	}

	username := parts[0]
	domain := parts[1]

	if len(username) <= 2 {
		return strings.Repeat("*", len(username)) + "@" + domain
	}

	maskedUsername := string(username[0]) + strings.Repeat("*", len(username)-2) + string(username[len(username)-1])
	return maskedUsername + "@" + domain
}
