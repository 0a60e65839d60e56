// Пакет apiclient — типизированные операции API платформы поверх Gateway.
// Аутентификация (login/register/reset-password), профиль пользователя
// и загрузка отчётов (multipart).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/bugsheriff/client-core/internal/domain/model"
	"github.com/bugsheriff/client-core/internal/gateway"
	"github.com/bugsheriff/client-core/internal/session"
)

// Client — типизированный клиент API платформы.
type Client struct {
	gw     *gateway.Gateway
	sess   *session.Store
	logger *slog.Logger
}

// New создаёт клиент API.
func New(gw *gateway.Gateway, sess *session.Store, logger *slog.Logger) *Client {
	return &Client{
		gw:     gw,
		sess:   sess,
		logger: logger.With(slog.String("component", "api_client")),
	}
}

// credentials — тело запросов /login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registration — тело запросов /register и /reset-password.
type registration struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	SecretQuestion string `json:"secret_question"`
	SecretAnswer   string `json:"secret_answer"`
}

// Login выполняет вход и при успехе сохраняет токен в сессии.
// Роль выводится из username ("admin" → администратор) и живёт
// только вместе с токеном.
func (c *Client) Login(ctx context.Context, username, password string) (model.Role, error) {
	payload, err := c.gw.CallPublic(ctx, http.MethodPost, "/login", credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		return model.RoleUndetermined, err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return model.RoleUndetermined, fmt.Errorf("декодирование ответа login: %w", err)
	}
	if resp.AccessToken == "" {
		return model.RoleUndetermined, fmt.Errorf("пустой access_token в ответе login")
	}

	if err := c.sess.SetToken(resp.AccessToken, username); err != nil {
		return model.RoleUndetermined, fmt.Errorf("сохранение токена сессии: %w", err)
	}

	role := c.sess.Role()
	c.logger.Info("Вход выполнен", slog.String("role", string(role)))
	return role, nil
}

// Logout завершает сессию локально (сервер stateless, endpoint нет).
func (c *Client) Logout() {
	c.sess.Clear()
	c.logger.Info("Сессия завершена")
}

// Register регистрирует нового пользователя (POST /register, ожидается 201).
func (c *Client) Register(ctx context.Context, username, password, secretQuestion, secretAnswer string) error {
	_, err := c.gw.CallPublic(ctx, http.MethodPost, "/register", registration{
		Username:       username,
		Password:       password,
		SecretQuestion: secretQuestion,
		SecretAnswer:   secretAnswer,
	})
	return err
}

// ResetPassword устанавливает новый пароль по секретному вопросу
// (POST /reset-password, сессия не требуется).
func (c *Client) ResetPassword(ctx context.Context, username, newPassword, secretQuestion, secretAnswer string) error {
	_, err := c.gw.CallPublic(ctx, http.MethodPost, "/reset-password", registration{
		Username:       username,
		Password:       newPassword,
		SecretQuestion: secretQuestion,
		SecretAnswer:   secretAnswer,
	})
	return err
}

// Profile возвращает профиль текущего пользователя (GET /user-details).
func (c *Client) Profile(ctx context.Context) (*model.UserProfile, error) {
	payload, err := c.gw.Call(ctx, http.MethodGet, "/user-details", nil)
	if err != nil {
		return nil, err
	}

	var profile model.UserProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, fmt.Errorf("декодирование профиля: %w", err)
	}
	return &profile, nil
}

// UpdateProfile обновляет профиль (PUT /update-user).
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) error {
	_, err := c.gw.Call(ctx, http.MethodPut, "/update-user", update)
	return err
}

// UploadReport отправляет отчёт об уязвимости: PDF-артефакт и идентификатор
// программы одним multipart-запросом (POST /upload).
// filename — имя файла, как его выбрал пользователь; content — содержимое PDF.
func (c *Client) UploadReport(ctx context.Context, programID int64, filename string, content io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("подготовка multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("копирование содержимого файла: %w", err)
	}
	if err := writer.WriteField("program_id", strconv.FormatInt(programID, 10)); err != nil {
		return fmt.Errorf("запись поля program_id: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("завершение multipart: %w", err)
	}

	if err := c.gw.Upload(ctx, "/upload", writer.FormDataContentType(), &body); err != nil {
		return err
	}

	c.logger.Info("Отчёт загружен",
		slog.Int64("program_id", programID),
		slog.String("filename", filename),
	)
	return nil
}
