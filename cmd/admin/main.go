// Package main provides account and moderation utilities for operators.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"gorm.io/gorm"
)

const usageText = `Usage:
  go run ./cmd/admin createsuperuser <email> [password]   - Create or promote a superuser
  go run ./cmd/admin promote <email>                      - Grant staff status
  go run ./cmd/admin demote <email>                       - Revoke staff status
  go run ./cmd/admin verify <email>                       - Mark an account verified
  go run ./cmd/admin list-staff                           - List staff accounts
  go run ./cmd/admin [-as email] approve-comments <id...|all>
                                                          - Approve pending comments`

var errUsage = errors.New("invalid usage")

func main() {
	as := flag.String("as", "", "Staff account that approves comments (defaults to SUPERUSER_EMAIL)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usageText) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	operator := *as
	if operator == "" {
		operator = cfg.SuperuserEmail
	}
	cli := newAdminCLI(db, os.Stdout)
	cli.operator = operator
	cli.defaultPassword = cfg.SuperuserPassword

	if err := cli.run(context.Background(), flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		log.Fatalf("❌ %v", err)
	}
}

type adminCLI struct {
	db       *gorm.DB
	out      io.Writer
	users    *service.UserService
	userRepo repository.UserRepository
	comments *service.CommentService

	operator        string
	defaultPassword string
}

func newAdminCLI(db *gorm.DB, out io.Writer) *adminCLI {
	userRepo := repository.NewUserRepository(db)
	return &adminCLI{
		db:       db,
		out:      out,
		users:    service.NewUserService(userRepo),
		userRepo: userRepo,
		comments: service.NewCommentService(repository.NewCommentRepository(db), repository.NewPostRepository(db)),
	}
}

func (a *adminCLI) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	yes, no := true, false

	switch args[0] {
	case "createsuperuser":
		if len(args) < 2 {
			return errUsage
		}
		password := a.defaultPassword
		if len(args) > 2 {
			password = args[2]
		}
		user, created, err := a.users.CreateSuperuser(ctx, args[1], password)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(a.out, "✅ Created superuser %s (ID: %d)\n", user.Email, user.ID)
		} else {
			fmt.Fprintf(a.out, "✅ Promoted existing account %s (ID: %d) to superuser\n", user.Email, user.ID)
		}
	case "promote":
		return a.setFlags(ctx, args, service.UserFlags{IsStaff: &yes}, "promoted to staff")
	case "demote":
		return a.setFlags(ctx, args, service.UserFlags{IsStaff: &no, IsSuperuser: &no}, "demoted from staff")
	case "verify":
		return a.setFlags(ctx, args, service.UserFlags{IsVerified: &yes}, "verified")
	case "list-staff":
		return a.listStaff(ctx)
	case "approve-comments":
		return a.approveComments(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
	return nil
}

func (a *adminCLI) setFlags(ctx context.Context, args []string, flags service.UserFlags, verb string) error {
	if len(args) < 2 {
		return errUsage
	}
	user, err := a.users.SetFlagsByEmail(ctx, args[1], flags)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✅ Successfully %s %s (ID: %d)\n", verb, user.Email, user.ID)
	return nil
}

func (a *adminCLI) listStaff(ctx context.Context) error {
	yes := true
	staff, _, err := a.userRepo.List(ctx, models.UserFilter{IsStaff: &yes}, 1000, 0)
	if err != nil {
		return fmt.Errorf("fetch staff: %w", err)
	}
	if len(staff) == 0 {
		fmt.Fprintln(a.out, "No staff accounts found")
		return nil
	}

	fmt.Fprintln(a.out, "📋 Staff accounts:")
	fmt.Fprintln(a.out, "─────────────────────────────────────")
	for _, u := range staff {
		fmt.Fprintf(a.out, "ID: %d | Email: %s | Superuser: %t | Active: %t\n", u.ID, u.Email, u.IsSuperuser, u.IsActive)
	}
	fmt.Fprintln(a.out, "─────────────────────────────────────")
	return nil
}

func (a *adminCLI) approveComments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if a.operator == "" {
		return errors.New("no operator account: pass -as or set SUPERUSER_EMAIL")
	}
	operator, err := a.userRepo.GetByEmail(ctx, models.NormalizeEmail(a.operator))
	if err != nil {
		return err
	}
	if operator == nil {
		return models.NewNotFoundError("User", a.operator)
	}
	state := models.AuthStateOf(operator)
	actor := service.ActorFromState(&state)

	var ids []uint
	if len(args) == 1 && args[0] == "all" {
		if err := a.db.WithContext(ctx).Model(&models.Comment{}).
			Where("is_approved = ?", false).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("fetch pending comments: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(a.out, "No pending comments")
			return nil
		}
	} else {
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid comment id %q: %w", arg, errUsage)
			}
			ids = append(ids, uint(id))
		}
	}

	n, err := a.comments.ApproveMany(ctx, actor, ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✅ Approved %d comment(s)\n", n)
	return nil
}
