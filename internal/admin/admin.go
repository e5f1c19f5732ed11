// Package admin implements the operator commands shipped in cmd/admin:
// bootstrapping an account and triggering a purge over the ops listener.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/server"
	"github.com/npremz/astrobackoffice/internal/server/auth"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/services"

	gs "github.com/npremz/astrobackoffice/internal/server/grpc"
)

const purgeTimeout = 30 * time.Second

var ErrUsage = errors.New("usage: admin <create-user|purge> [flags]")

// App runs one command against a loaded server config.
type App struct {
	config *config.Config
	in     *bufio.Reader
	out    io.Writer

	// seams
	openStorage func(ctx context.Context, dsn string) (*server.Storage, error)
	dial        func(target string) (grpc.ClientConnInterface, io.Closer, error)
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config:      c,
		in:          bufio.NewReader(in),
		out:         out,
		openStorage: server.OpenStorage,
		dial:        dialInsecure,
	}
}

func dialInsecure(target string) (grpc.ClientConnInterface, io.Closer, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn, nil
}

// Run dispatches args[0] to the matching command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "create-user":
		return a.createUser(ctx, args[1:])
	case "purge":
		return a.purge(ctx)
	default:
		return ErrUsage
	}
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	role := fs.String("role", common.RoleAdmin, "admin | editor | viewer")
	// config flags share os.Args; unknown ones are tolerated.
	if err := fs.Parse(ownFlags(args)); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = GetSimpleText(a.in, "Email", a.out); err != nil {
			return err
		}
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	if string(pw) != string(confirm) {
		return errors.New("passwords do not match")
	}

	st, err := a.openStorage(ctx, a.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	us := services.NewUserService(st.Store, st.Manager, services.NewSessionService(st.Store, st.Manager, a.config))
	u, err := us.CreateUser(ctx, *email, *name, *role, string(pw))
	if err != nil {
		var pe *auth.PasswordPolicyError
		if errors.As(err, &pe) {
			return fmt.Errorf("password rejected: %s", strings.Join(pe.Reasons, "; "))
		}
		return err
	}

	fmt.Fprintf(a.out, "created %s (%s) id=%s\n", u.Email, u.Role, u.ID)
	return nil
}

// ownFlags drops the short server config flags so the command's flag set
// only sees its own.
func ownFlags(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch name {
		case "email", "name", "role":
			out = append(out, arg)
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				out = append(out, args[i+1])
				i++
			}
		}
	}
	return out
}

// opsTarget turns a listen address like ":50051" into a dialable target.
func opsTarget(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func (a *App) purge(ctx context.Context) error {
	cc, closer, err := a.dial(opsTarget(a.config.EndpointAddrGRPC))
	if err != nil {
		return fmt.Errorf("dial ops listener: %w", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+a.config.CronSecret)

	res, err := gs.NewMaintenanceClient(cc).PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fields := res.GetFields()
	fmt.Fprintf(a.out, "purged sessions=%d invitations=%d\n",
		int64(fields["sessions"].GetNumberValue()),
		int64(fields["invitations"].GetNumberValue()))
	return nil
}
