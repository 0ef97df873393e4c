package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/service"
)

// Operator is the subset of service.AdminService the bot drives.
type Operator interface {
	GetStats(ctx context.Context) (*service.Stats, error)
	GetUser(ctx context.Context, identifier string) (*service.UserInfo, error)
	ResolveUserIdentifier(ctx context.Context, identifier string) (int64, error)
	ResetFraud(ctx context.Context, userID int64, unrestrict bool) error
	Unrestrict(ctx context.Context, userID int64) (*service.RestrictionStatus, error)
	Restrict(ctx context.Context, userID int64) (*service.RestrictionStatus, error)
	AdjustBalance(ctx context.Context, userID, amount int64, reason string) (*service.BalanceAdjustment, error)
}

type Board interface {
	Global(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error)
}

// Commands renders replies for admin commands. It has no Telegram
// dependency so replies can be checked directly.
type Commands struct {
	ops   Operator
	board Board
}

func NewCommands(ops Operator, board Board) *Commands {
	return &Commands{ops: ops, board: board}
}

// Run executes one command and returns the HTML reply.
func (c *Commands) Run(ctx context.Context, cmd, args string) string {
	args = strings.TrimSpace(args)
	switch cmd {
	case "start", "help":
		return helpMessage
	case "stats":
		return c.stats(ctx)
	case "user":
		return c.user(ctx, args)
	case "flags":
		return c.flags(ctx, args)
	case "resetfraud":
		return c.resetFraud(ctx, args)
	case "unrestrict":
		return c.unrestrict(ctx, args)
	case "restrict":
		return c.restrict(ctx, args)
	case "adjust":
		return c.adjust(ctx, args)
	case "top":
		return c.top(ctx, args)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

const helpMessage = `<b>🤖 Команды администратора</b>

<b>📊 Статистика:</b>
/stats - Статистика платформы
/top [лимит] - Топ игроков по заработку

<b>👤 Игроки:</b>
/user &lt;@username|tg_id|id:N&gt; - Информация об игроке
/flags &lt;@username|tg_id|id:N&gt; - Последние фрод-флаги

<b>🛡 Антифрод:</b>
/resetfraud &lt;@username|tg_id|id:N&gt; [unrestrict] - Сбросить фрод-скор
/unrestrict &lt;@username|tg_id|id:N&gt; - Снять ограничение (скор сохраняется)
/restrict &lt;@username|tg_id|id:N&gt; - Ограничить игрока

<b>💰 Баланс:</b>
/adjust &lt;@username|tg_id|id:N&gt; &lt;±сумма&gt; [причина] - Начислить или списать`

func (c *Commands) stats(ctx context.Context) string {
	st, err := c.ops.GetStats(ctx)
	if err != nil {
		return errorReply(err)
	}

	return fmt.Sprintf(`<b>📊 Статистика платформы</b>

<b>👥 Игроки:</b>
• Всего: %d
• Новых сегодня: %d
• Ограничено: %d

<b>💰 Экономика:</b>
• Баланс в обороте: %d
• Заработано всего: %d

<b>🛡 Фрод-флагов сегодня:</b> %d
<b>👥 Сквадов:</b> %d`,
		st.TotalUsers,
		st.NewUsersToday,
		st.RestrictedUsers,
		st.TotalBalance,
		st.TotalEarned,
		st.FraudFlagsToday,
		st.Squads,
	)
}

func (c *Commands) user(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Использование: /user &lt;@username|tg_id|id:N&gt;"
	}

	info, err := c.ops.GetUser(ctx, args)
	if err != nil {
		return errorReply(err)
	}
	u, st := info.User, info.State

	restricted := "нет"
	if st.Restricted {
		restricted = "🚫 да"
	}
	return fmt.Sprintf(`<b>👤 Информация об игроке</b>

• ID: %d
• Telegram ID: %d
• Username: @%s
• Имя: %s
• 💰 Баланс: %d
• 📈 Заработано: %d
• 🏆 Лига: %s
• ⚡ Энергия: %d/%d
• 👆 Сила тапа: %d
• 🛡 Фрод-скор: %d
• Ограничен: %s
• 📅 Регистрация: %s`,
		u.ID,
		u.TgID,
		html.EscapeString(u.Username),
		html.EscapeString(u.FirstName),
		st.Balance,
		st.TotalEarned,
		st.League,
		st.Energy, st.MaxEnergy,
		st.TapPower,
		st.FraudScore,
		restricted,
		u.CreatedAt.Format("02.01.2006 15:04"),
	)
}

func (c *Commands) flags(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Использование: /flags &lt;@username|tg_id|id:N&gt;"
	}

	info, err := c.ops.GetUser(ctx, args)
	if err != nil {
		return errorReply(err)
	}
	if len(info.FraudFlags) == 0 {
		return "✅ Фрод-флагов нет"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🛡 Фрод-флаги игрока %d</b> (скор %d)\n\n", info.User.ID, info.State.FraudScore)
	for _, f := range info.FraudFlags {
		fmt.Fprintf(&sb, "• %s | %s | +%d | %s\n",
			f.CreatedAt.Format("02.01 15:04:05"), f.FlagType, f.Score, html.EscapeString(f.Details))
	}
	return sb.String()
}

func (c *Commands) resetFraud(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 || (len(parts) == 2 && parts[1] != "unrestrict") {
		return "❌ Использование: /resetfraud &lt;@username|tg_id|id:N&gt; [unrestrict]"
	}
	unrestrict := len(parts) == 2

	userID, err := c.ops.ResolveUserIdentifier(ctx, parts[0])
	if err != nil {
		return errorReply(err)
	}
	if err := c.ops.ResetFraud(ctx, userID, unrestrict); err != nil {
		return errorReply(err)
	}

	if unrestrict {
		return fmt.Sprintf("✅ Фрод-скор игрока %d сброшен, ограничение снято", userID)
	}
	return fmt.Sprintf("✅ Фрод-скор игрока %d сброшен", userID)
}

func (c *Commands) unrestrict(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Использование: /unrestrict &lt;@username|tg_id|id:N&gt;"
	}

	userID, err := c.ops.ResolveUserIdentifier(ctx, args)
	if err != nil {
		return errorReply(err)
	}
	st, err := c.ops.Unrestrict(ctx, userID)
	if err != nil {
		return errorReply(err)
	}
	reply := fmt.Sprintf("✅ Ограничение с игрока %d снято", userID)
	if st.Rearmed() {
		reply += fmt.Sprintf("\n⚠️ Фрод-скор %d из %d: следующее нарушение снова ограничит игрока. Используйте /resetfraud %d",
			st.FraudScore, st.Threshold, userID)
	}
	return reply
}

func (c *Commands) restrict(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Использование: /restrict &lt;@username|tg_id|id:N&gt;"
	}

	userID, err := c.ops.ResolveUserIdentifier(ctx, args)
	if err != nil {
		return errorReply(err)
	}
	if _, err := c.ops.Restrict(ctx, userID); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("🚫 Игрок %d ограничен", userID)
}

func (c *Commands) adjust(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return "❌ Использование: /adjust &lt;@username|tg_id|id:N&gt; &lt;±сумма&gt; [причина]"
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || amount == 0 {
		return "❌ Сумма должна быть ненулевым целым числом"
	}
	reason := strings.Join(parts[2:], " ")

	userID, err := c.ops.ResolveUserIdentifier(ctx, parts[0])
	if err != nil {
		return errorReply(err)
	}
	res, err := c.ops.AdjustBalance(ctx, userID, amount, reason)
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("✅ Баланс игрока %d: %d → %d (%+d)", userID, res.OldBalance, res.NewBalance, amount)
}

func (c *Commands) top(ctx context.Context, args string) string {
	limit := 10
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	entries, err := c.board.Global(ctx, limit, 0)
	if err != nil {
		return errorReply(err)
	}
	if len(entries) == 0 {
		return "❌ Игроки не найдены"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🏆 Топ %d по заработку</b>\n\n", limit)
	for _, e := range entries {
		name := e.Username
		if name == "" {
			name = e.FirstName
		}
		fmt.Fprintf(&sb, "%d. @%s | %d | %s\n", e.Rank, html.EscapeString(name), e.TotalEarned, e.League)
	}
	return sb.String()
}

func errorReply(err error) string {
	if errors.Is(err, repository.ErrUserNotFound) {
		return "❌ Игрок не найден"
	}
	var be *game.BalanceError
	if errors.As(err, &be) {
		return fmt.Sprintf("❌ Недостаточно средств: баланс %d, списание %d", be.Balance, be.Price)
	}
	return "❌ Ошибка: " + html.EscapeString(err.Error())
}
