package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	commandapp "command-server/internal/application/command"
	"command-server/internal/application/game"
	"command-server/internal/domain/command"
	"command-server/internal/domain/user"
)

// CommandRunner コマンドの実行経路
type CommandRunner interface {
	Run(ctx context.Context, trigger string, u *user.User, channel string, args []string) error
	HandleMessage(ctx context.Context, msg commandapp.Message) error
}

// GameRegistry 登録済みゲームの参照
type GameRegistry interface {
	Game(commandID string) (game.Runner, bool)
}

// sessionReporter 進行中のセッションを公開するゲーム
type sessionReporter interface {
	Session() (game.SessionInfo, bool)
}

// CommandHandler コマンド関連ハンドラー（管理API用）
type CommandHandler struct {
	catalog *command.Catalog
	runner  CommandRunner
	games   GameRegistry
}

// NewCommandHandler 新しいCommandHandlerを作成
func NewCommandHandler(catalog *command.Catalog, runner CommandRunner, games GameRegistry) *CommandHandler {
	return &CommandHandler{
		catalog: catalog,
		runner:  runner,
		games:   games,
	}
}

// ListCommands コマンド一覧ハンドラー
// @Summary コマンド一覧を取得（管理API）
// @Description 読み込まれているコマンド定義の一覧を返します
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} CommandListResponse "取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/commands [get]
func (h *CommandHandler) ListCommands(c echo.Context) error {
	cmds := h.catalog.All()
	items := make([]CommandItem, 0, len(cmds))
	for _, cmd := range cmds {
		items = append(items, toCommandItem(cmd))
	}
	return c.JSON(http.StatusOK, CommandListResponse{Commands: items})
}

// RunCommand コマンド実行ハンドラー
// @Summary コマンドを実行（管理API）
// @Description 指定した発言者としてトリガーのコマンドを実行します。要件判定は通常どおり行われます
// @Tags admin
// @Accept json
// @Produce json
// @Param trigger path string true "トリガー" example(hug)
// @Param X-API-Key header string true "APIキー"
// @Param request body RunCommandRequest true "コマンド実行リクエスト"
// @Success 200 {object} StatusResponse "実行完了"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 404 {object} ErrorResponse "コマンドが見つからない"
// @Router /admin/commands/{trigger}/run [post]
func (h *CommandHandler) RunCommand(c echo.Context) error {
	trigger := c.Param("trigger")
	if trigger == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trigger is required")
	}

	var reqBody RunCommandRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := reqBody.Invoker.user()
	if err != nil {
		return err
	}
	if reqBody.Args == nil {
		reqBody.Args = []string{}
	}

	if err := h.runner.Run(c.Request().Context(), trigger, u, reqBody.Channel, reqBody.Args); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// InjectMessage チャットメッセージ注入ハンドラー
// @Summary チャットメッセージを注入（管理API）
// @Description チャットから届いたものとしてメッセージを処理します
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body InjectMessageRequest true "メッセージ注入リクエスト"
// @Success 202 {object} StatusResponse "受付完了"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Router /admin/messages [post]
func (h *CommandHandler) InjectMessage(c echo.Context) error {
	var reqBody InjectMessageRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(reqBody.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	u, err := reqBody.Invoker.user()
	if err != nil {
		return err
	}

	msg := commandapp.Message{User: u, Channel: reqBody.Channel, Text: reqBody.Text}
	if err := h.runner.HandleMessage(c.Request().Context(), msg); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// ListGames 進行中のゲーム一覧ハンドラー
// @Summary 進行中のゲームを取得（管理API）
// @Description 受諾待ちの決闘など、進行中のゲームセッションを返します
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} GameSessionListResponse "取得成功"
// @Router /admin/games [get]
func (h *CommandHandler) ListGames(c echo.Context) error {
	sessions := []GameSessionItem{}
	for _, cmd := range h.catalog.All() {
		if !cmd.IsGame() {
			continue
		}
		runner, ok := h.games.Game(cmd.ID)
		if !ok {
			continue
		}
		reporter, ok := runner.(sessionReporter)
		if !ok {
			continue
		}
		info, ok := reporter.Session()
		if !ok {
			continue
		}
		sessions = append(sessions, GameSessionItem{
			CommandID: cmd.ID,
			SessionID: info.ID,
			Initiator: info.Initiator,
			Target:    info.Target,
			Bet:       strconv.FormatInt(info.Bet, 10),
			CreatedAt: info.CreatedAt,
			Deadline:  info.Deadline,
		})
	}
	return c.JSON(http.StatusOK, GameSessionListResponse{Sessions: sessions})
}

// user 発言者をドメインのユーザーに変換（プラットフォーム省略時はapi）
func (i Invoker) user() (*user.User, error) {
	platform := user.PlatformAPI
	if i.Platform != "" {
		p, err := user.NewPlatform(i.Platform)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid platform")
		}
		platform = p
	}

	role := user.RoleUser
	if i.Role != "" {
		r, err := user.NewRole(i.Role)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		role = r
	}

	return user.New(i.UserID, i.Username, platform, role)
}

func toCommandItem(cmd *command.Command) CommandItem {
	item := CommandItem{
		ID:       cmd.ID,
		Name:     cmd.Name,
		Triggers: cmd.Triggers,
		Enabled:  cmd.Enabled,
		Actions:  len(cmd.Actions),
	}
	if cmd.Game != nil {
		item.Game = string(cmd.Game.Type)
	}
	req := cmd.Requirements
	if req.Role != nil {
		item.MinRole = req.Role.Minimum.String()
	}
	if req.Cooldown != nil {
		item.Cooldown = req.Cooldown.Duration.String()
	}
	if cur := req.Currency; cur != nil {
		if cur.Bet {
			item.Cost = fmt.Sprintf("bet %d-%d %s", cur.Min, cur.Max, cur.CurrencyID)
		} else {
			item.Cost = fmt.Sprintf("%d %s", cur.Amount, cur.CurrencyID)
		}
	}
	return item
}
