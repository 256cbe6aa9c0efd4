package bot

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// recoverInteraction turns errors and panics from h into an ephemeral reply.
func recoverInteraction(logger *zap.Logger, metrics *observability.Metrics, route string, h HandlerFunc) func(context.Context, *platform.Interaction, platform.Responder) {
	return func(ctx context.Context, in *platform.Interaction, resp platform.Responder) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("route", route),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err == nil {
				return
			}
			domainErr := apperrors.ToDomainError(err)
			metrics.RecordInteractionError(route, domainErr.Code)
			fields := []zap.Field{
				zap.String("route", route),
				zap.String("channel_id", in.ChannelID),
				zap.String("actor", in.User.ID),
				zap.Error(err),
			}
			if domainErr.HTTPStatus >= 500 {
				logger.Error("interaction failed", fields...)
			} else {
				logger.Warn("interaction rejected", fields...)
			}
			if replyErr := resp.Reply(ctx, apperrors.UserMessage(err), true); replyErr != nil {
				logger.Warn("reply to interaction failed", zap.String("route", route), zap.Error(replyErr))
			}
		}()
		err = h(ctx, in, resp)
	}
}
