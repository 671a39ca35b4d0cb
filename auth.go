package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-twitter-proxy/captcha"
	"github.com/pquerna/otp/totp"
)

// arkosePublicKey is Twitter's well-known FunCaptcha public key for login flows.
const arkosePublicKey = "0152B4EB-D2DC-460A-89A1-629838B529C9"

const (
	onboardingURL  = twitterAPIURL + "/1.1/onboarding/task.json"
	maxLoginRounds = 10
	loginTimeout   = 3 * time.Minute
)

// relogin clears the account's session and signs in again with its password.
func (c *Client) relogin(ctx context.Context, acc *Account) error {
	slog.Info("attempting relogin", slog.String("user", acc.Username))
	if err := c.cfg.Sessions.Delete(acc.Username); err != nil {
		slog.Warn("session delete failed", slog.String("user", acc.Username), slog.Any("error", err))
	}
	if acc.Password == "" {
		return fmt.Errorf("relogin %s: cookie-only account, export fresh cookies", acc.Username)
	}

	acc.SetCredentials("", "")

	if err := c.login(ctx, acc, c.clientForAccount(acc)); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}
	c.persist(acc)

	acc.Reset()
	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// loadOrLogin resolves credentials from the account itself (cookie file or
// inline tokens), then from the session store, then by logging in. Supplied
// tokens that differ from the stored pair replace it.
func (c *Client) loadOrLogin(acc *Account, client *stealth.BrowserClient) error {
	suppliedAuth, suppliedCT0, _ := acc.Credentials()
	authToken, ct0, err := c.cfg.Sessions.Load(acc.Username, c.cfg.SessionTTL)
	if err != nil {
		slog.Warn("error loading session", slog.String("user", acc.Username), slog.Any("error", err))
	}

	if suppliedAuth != "" && suppliedCT0 != "" {
		if suppliedAuth == authToken && suppliedCT0 == ct0 {
			slog.Info("loaded stored session", slog.String("user", acc.Username))
			return nil
		}
		acc.SetCredentials(suppliedAuth, suppliedCT0)
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.persist(acc)
		return nil
	}

	if authToken != "" && ct0 != "" {
		acc.SetCredentials(authToken, ct0)
		slog.Info("loaded stored session", slog.String("user", acc.Username))
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	if err := c.login(ctx, acc, client); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.persist(acc)
	return nil
}

// loginFlow carries the state of one onboarding conversation.
type loginFlow struct {
	c          *Client
	acc        *Account
	client     *stealth.BrowserClient
	guestToken string
	flowToken  string
	subtasks   []string
}

// subtaskHandler builds the subtask_inputs entry answering one subtask.
type subtaskHandler func(ctx context.Context, f *loginFlow, subtaskID string) (map[string]any, error)

var loginSubtasks = map[string]subtaskHandler{
	"LoginJsInstrumentationSubtask": func(_ context.Context, _ *loginFlow, id string) (map[string]any, error) {
		return map[string]any{
			"subtask_id": id,
			"js_instrumentation": map[string]any{
				"response": `{"rf":{"a":"b"},"s":"s"}`,
				"link":     "next_link",
			},
		}, nil
	},
	"LoginEnterUserIdentifierSSO": func(_ context.Context, f *loginFlow, id string) (map[string]any, error) {
		return map[string]any{
			"subtask_id": id,
			"settings_list": map[string]any{
				"setting_responses": []any{map[string]any{
					"key":           "user_identifier",
					"response_data": map[string]any{"text_data": map[string]any{"result": f.acc.Username}},
				}},
				"link": "next_link",
			},
		}, nil
	},
	"LoginEnterPassword": func(_ context.Context, f *loginFlow, id string) (map[string]any, error) {
		return map[string]any{
			"subtask_id":     id,
			"enter_password": map[string]any{"password": f.acc.Password, "link": "next_link"},
		}, nil
	},
	"LoginEnterAlternateIdentifierSubtask": func(_ context.Context, f *loginFlow, id string) (map[string]any, error) {
		return enterText(id, f.acc.Username), nil
	},
	"LoginTwoFactorAuthChallenge": func(_ context.Context, f *loginFlow, id string) (map[string]any, error) {
		if f.acc.TOTPSecret == "" {
			return nil, fmt.Errorf("2FA required but no TOTP secret for %s", f.acc.Username)
		}
		code, err := totp.GenerateCode(f.acc.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("TOTP code generation failed for %s: %w", f.acc.Username, err)
		}
		slog.Info("submitting TOTP code", slog.String("user", f.acc.Username))
		return enterText(id, code), nil
	},
	"LoginArkoseChallenge": solveArkose,
	"LoginArkoseCaptcha":   solveArkose,
	"LoginEnterRecaptcha":  solveArkose,
}

func enterText(subtaskID, text string) map[string]any {
	return map[string]any{
		"subtask_id": subtaskID,
		"enter_text": map[string]any{"text": text, "link": "next_link"},
	}
}

func solveArkose(ctx context.Context, f *loginFlow, _ string) (map[string]any, error) {
	if f.c.cfg.CaptchaSolver == nil {
		return nil, fmt.Errorf("CAPTCHA required but no solver configured for %s", f.acc.Username)
	}
	token, err := f.c.cfg.CaptchaSolver.Solve(ctx, captcha.Challenge{
		SiteKey: arkosePublicKey,
		PageURL: "https://x.com",
	})
	if err != nil {
		return nil, fmt.Errorf("CAPTCHA solve failed for %s: %w", f.acc.Username, err)
	}
	slog.Info("CAPTCHA solved for login", slog.String("user", f.acc.Username))
	return map[string]any{
		"subtask_id": "LoginArkoseChallenge",
		"web_modal": map[string]any{
			"completion_deeplink": "twitter://onboarding/web_modal/next_link?access_token=" + token,
		},
	}, nil
}

// login performs Twitter's multi-step onboarding login and stores the
// resulting auth_token/ct0 cookies on acc.
func (c *Client) login(ctx context.Context, acc *Account, client *stealth.BrowserClient) error {
	slog.Info("logging in", slog.String("user", acc.Username))

	guestToken, err := c.getGuestToken(client)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}
	f := &loginFlow{c: c, acc: acc, client: client, guestToken: guestToken}
	if err := f.post(onboardingURL+"?flow_name=login", []byte(loginFlowInit)); err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for round := 0; round < maxLoginRounds && len(f.subtasks) > 0; round++ {
		subtaskID := f.subtasks[0]
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		switch subtaskID {
		case "LoginSuccessSubtask", "AccountDuplicationCheck":
			slog.Debug("login flow complete", slog.String("user", acc.Username), slog.String("terminal", subtaskID))
			return f.finish()
		case "DenyLoginSubtask":
			return fmt.Errorf("login denied for %s (account may be locked or disabled)", acc.Username)
		}

		handler, ok := loginSubtasks[subtaskID]
		if !ok {
			slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
			handler = func(_ context.Context, _ *loginFlow, id string) (map[string]any, error) {
				return map[string]any{"subtask_id": id, "action_list": map[string]any{"link": "next_link"}}, nil
			}
		}
		input, err := handler(ctx, f, subtaskID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{
			"flow_token":     f.flowToken,
			"subtask_inputs": []any{input},
		})
		if err != nil {
			return err
		}
		if err := f.post(onboardingURL, payload); err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}
	return f.finish()
}

// post submits one onboarding step and records the next flow state.
func (f *loginFlow) post(url string, payload []byte) error {
	body, _, status, err := f.client.DoWithHeaderOrder("POST", url,
		loginFlowHeaders(f.guestToken), strings.NewReader(string(payload)), twitterHeaderOrder)
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	var resp struct {
		FlowToken string `json:"flow_token"`
		Subtasks  []struct {
			SubtaskID string `json:"subtask_id"`
		} `json:"subtasks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse flow response: %w", err)
	}
	if resp.FlowToken == "" {
		return fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	f.flowToken = resp.FlowToken
	f.subtasks = f.subtasks[:0]
	for _, st := range resp.Subtasks {
		f.subtasks = append(f.subtasks, st.SubtaskID)
	}
	return nil
}

// finish copies the session cookies set during the flow onto the account.
func (f *loginFlow) finish() error {
	cookie := func(name string) string {
		for _, domain := range []string{"https://api.twitter.com", "https://twitter.com", "https://x.com"} {
			if v := f.client.GetCookieValue(domain, name); v != "" {
				return v
			}
		}
		return ""
	}
	authToken := cookie("auth_token")
	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", f.acc.Username)
	}
	ct0 := cookie("ct0")
	if ct0 == "" {
		ct0 = GenerateCT0()
	}
	f.acc.SetCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", f.acc.Username))
	return nil
}

// getGuestToken fetches a Twitter guest token.
func (c *Client) getGuestToken(client *stealth.BrowserClient) (string, error) {
	headers := map[string]string{
		"authorization": "Bearer " + BearerToken,
		"content-type":  contentJSON,
		"user-agent":    defaultUserAgent,
	}
	body, _, status, err := client.DoWithHeaderOrder("POST", twitterAPIURL+"/1.1/guest/activate.json", headers, nil, twitterHeaderOrder)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context, client *stealth.BrowserClient) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := c.getGuestToken(client)
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}

// loginFlowInit is the subtask_versions body for flow_name=login.
const loginFlowInit = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`
