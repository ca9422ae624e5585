package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/obs"
	"grievance/backend/internal/realtime"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/timeline"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-user <role> <email> <name>           create an admin or officer account
  token <user_id>                             issue a bearer token
  link-telegram <user_id> <chat_id> [lang]    attach a Telegram chat to an account
  assign <complaint_id> <officer_id>          assign an existing officer
  reassign <complaint_id> <officer_id>        move a complaint to another officer
  unassign <complaint_id>                     remove the current officer
  approve-extension <complaint_id> [days]     approve the latest pending request
  reject-extension <complaint_id> [notes]     reject the latest pending request
  reconcile <officer_id>                      rebuild an officer's assignment list
  timeline <complaint_id>                     print a complaint's timeline as JSON

ADMIN_USER_ID names the admin recorded as the actor of each change.`

type app struct {
	cfg        config.Config
	store      storage.Storage
	complaints *complaint.Service
	actor      *models.Actor
	logger     *zap.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, _ := config.Load()
	logger, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, Dev: true})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	store := storage.NewStorageService(db)

	// Changes made here reach connected users only through Redis.
	var dispatcher timeline.Dispatcher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		dispatcher = notify.NewDispatcher(store, realtime.NewHub(rdb, logger), logger)
	}

	ctx := context.Background()
	a := &app{
		cfg:        cfg,
		store:      store,
		complaints: complaint.NewService(store, timeline.New(store, dispatcher, logger), logger),
		logger:     logger,
	}
	a.actor = a.resolveActor(ctx)

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func (a *app) resolveActor(ctx context.Context) *models.Actor {
	id := os.Getenv("ADMIN_USER_ID")
	if id == "" {
		return &models.Actor{Role: models.RoleAdmin, Name: "admin-cli"}
	}
	u, err := a.store.GetUserByID(ctx, id)
	if err != nil || u.Role != models.RoleAdmin {
		a.logger.Fatal("ADMIN_USER_ID does not name an admin", zap.String("user_id", id), zap.Error(err))
	}
	return &models.Actor{UserID: u.ID, Role: u.Role, Name: u.Name}
}

func need(args []string, n int, form string) error {
	if len(args) < n {
		return fmt.Errorf("usage: admin %s", form)
	}
	return nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "create-user":
		if err := need(args, 3, "create-user <role> <email> <name>"); err != nil {
			return err
		}
		role := models.Role(args[0])
		if role != models.RoleAdmin && role != models.RoleOfficer {
			return fmt.Errorf("role must be admin or officer")
		}
		u := &models.User{Role: role, Email: args[1], Name: strings.Join(args[2:], " ")}
		if err := a.store.CreateUser(ctx, u); err != nil {
			return err
		}
		if role == models.RoleOfficer {
			o := &models.Officer{Name: u.Name, Email: u.Email, UserID: &u.ID}
			if err := a.store.CreateOfficer(ctx, o); err != nil {
				return err
			}
			fmt.Printf("officer %s\n", o.ID)
		}
		fmt.Printf("user %s\n", u.ID)

	case "token":
		if err := need(args, 1, "token <user_id>"); err != nil {
			return err
		}
		u, err := a.store.GetUserByID(ctx, args[0])
		if err != nil {
			return err
		}
		token, err := handler.NewAuth(a.cfg.JWTSecret, a.cfg.JWTTTL).IssueToken(u)
		if err != nil {
			return err
		}
		fmt.Println(token)

	case "link-telegram":
		if err := need(args, 2, "link-telegram <user_id> <chat_id> [lang]"); err != nil {
			return err
		}
		chatID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat id: %w", err)
		}
		u, err := a.store.GetUserByID(ctx, args[0])
		if err != nil {
			return err
		}
		u.TelegramChatID = &chatID
		if len(args) > 2 {
			u.Language = args[2]
		}
		if err := a.store.UpdateUser(ctx, u); err != nil {
			return err
		}
		fmt.Printf("user %s linked to chat %d\n", u.ID, chatID)

	case "assign", "reassign":
		if err := need(args, 2, command+" <complaint_id> <officer_id>"); err != nil {
			return err
		}
		var (
			c   *models.Complaint
			err error
		)
		if command == "assign" {
			c, err = a.complaints.AssignExistingOfficer(ctx, args[0], args[1], a.actor)
		} else {
			c, err = a.complaints.ReassignOfficer(ctx, args[0], args[1], a.actor)
		}
		if err != nil {
			return err
		}
		fmt.Printf("complaint %s assigned to %s\n", c.ID, args[1])

	case "unassign":
		if err := need(args, 1, "unassign <complaint_id>"); err != nil {
			return err
		}
		if _, err := a.complaints.UnassignComplaint(ctx, args[0], a.actor); err != nil {
			return err
		}
		fmt.Printf("complaint %s unassigned\n", args[0])

	case "approve-extension":
		if err := need(args, 1, "approve-extension <complaint_id> [days]"); err != nil {
			return err
		}
		var days *int
		if len(args) > 1 {
			d, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid days: %w", err)
			}
			days = &d
		}
		r, err := a.complaints.ApproveExtension(ctx, args[0], a.actor.UserID, days, "", a.actor)
		if err != nil {
			return err
		}
		fmt.Printf("extension %s approved\n", r.ID)

	case "reject-extension":
		if err := need(args, 1, "reject-extension <complaint_id> [notes]"); err != nil {
			return err
		}
		r, err := a.complaints.RejectExtension(ctx, args[0], a.actor.UserID, strings.Join(args[1:], " "), a.actor)
		if err != nil {
			return err
		}
		fmt.Printf("extension %s rejected\n", r.ID)

	case "reconcile":
		if err := need(args, 1, "reconcile <officer_id>"); err != nil {
			return err
		}
		added, removed, err := a.complaints.ReconcileOfficer(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("added %v\nremoved %v\n", added, removed)

	case "timeline":
		if err := need(args, 1, "timeline <complaint_id>"); err != nil {
			return err
		}
		events, err := a.complaints.Timeline(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)

	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
