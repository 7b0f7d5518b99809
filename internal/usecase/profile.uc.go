package usecase

import (
	"context"
	"strings"

	"spark-service/internal/domain"
	xerrors "spark-service/pkg/xerrors"
)

type ProfileUsecase struct {
	profiles ProfileRepository
	activity *ActivityUsecase
	notifier Notifier
	loc      Localizer
}

func NewProfileUsecase(profiles ProfileRepository, activity *ActivityUsecase, notifier Notifier, loc Localizer) *ProfileUsecase {
	return &ProfileUsecase{profiles: profiles, activity: activity, notifier: notifier, loc: loc}
}

func (uc *ProfileUsecase) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return uc.profiles.GetByID(ctx, userID)
}

func (uc *ProfileUsecase) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	if u.FirstName != nil {
		v := strings.TrimSpace(*u.FirstName)
		if v == "" {
			return nil, xerrors.ErrNameRequired
		}
		u.FirstName = &v
	}
	if u.LastName != nil {
		v := strings.TrimSpace(*u.LastName)
		u.LastName = &v
	}
	if u.FirstName == nil && u.LastName == nil && u.Phone == nil {
		return nil, xerrors.ErrInvalidInput
	}

	p, err := uc.profiles.Update(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	uc.activity.Log(ctx, userID, domain.ActivityProfileUpdated, nil)
	return p, nil
}

func (uc *ProfileUsecase) UpdateNotificationPrefs(ctx context.Context, userID string, prefs domain.NotificationPrefs) (domain.NotificationPrefs, error) {
	if err := uc.profiles.UpdateNotificationPrefs(ctx, userID, prefs); err != nil {
		return domain.NotificationPrefs{}, err
	}
	uc.activity.Log(ctx, userID, domain.ActivityPrefsUpdated, map[string]any{
		"sms": prefs.SMS, "push": prefs.Push, "email": prefs.Email,
	})
	return prefs, nil
}

// SendTestNotification returns how many open sessions received it.
func (uc *ProfileUsecase) SendTestNotification(ctx context.Context, userID, lang string) (int, error) {
	if _, err := uc.profiles.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	return uc.notifier.Send(userID, domain.Notification{
		Type:  "test",
		Title: uc.loc.Message(lang, "test_notification_title", nil),
		Body:  uc.loc.Message(lang, "test_notification_body", nil),
	}), nil
}
