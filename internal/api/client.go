package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"planner-sync/internal/config"
)

// Client talks to the publisher's game-record API. Failures (transport,
// HTTP status, non-zero retcode) are fatal for the call that made them;
// the orchestrator decides whether that fails a whole sync category or
// just one item.
type Client struct {
	baseURL string
	uid     string
	region  string
	cookie  string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		uid:     cfg.AccountUID,
		region:  cfg.Region,
		cookie:  cfg.AuthCookie,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type envelope[T any] struct {
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// GetAvatarBasicList returns the account's character roster summary.
func (c *Client) GetAvatarBasicList(ctx context.Context) (*AvatarBasicListData, error) {
	url := fmt.Sprintf("%s/game_record/zzz/api/zzz/avatar/basic?role_id=%s&server=%s", c.baseURL, c.uid, c.region)
	return doRequest[AvatarBasicListData](ctx, c, fasthttp.MethodGet, url, nil)
}

// GetAvatarDetail returns full stats, skills, ranks and the equipped
// weapon for the given character ids in one call.
func (c *Client) GetAvatarDetail(ctx context.Context, ids []int64) (*AvatarDetailData, error) {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "&id_list[]=%d", id)
	}
	url := fmt.Sprintf("%s/game_record/zzz/api/zzz/avatar/info?role_id=%s&server=%s%s", c.baseURL, c.uid, c.region, sb.String())
	return doRequest[AvatarDetailData](ctx, c, fasthttp.MethodGet, url, nil)
}

// GetEnergy returns the account's battery charge state.
func (c *Client) GetEnergy(ctx context.Context) (*EnergyData, error) {
	url := fmt.Sprintf("%s/game_record/zzz/api/zzz/note?role_id=%s&server=%s", c.baseURL, c.uid, c.region)
	return doRequest[EnergyData](ctx, c, fasthttp.MethodGet, url, nil)
}

// GetAvatarCalc runs the per-character upgrade-cost calculation. The
// endpoint is rate limited upstream; callers bound their fan-out.
func (c *Client) GetAvatarCalc(ctx context.Context, avatarID, weaponID int64) (*AvatarCalcData, error) {
	body, err := json.Marshal(calcRequest{
		AvatarID: avatarID,
		WeaponID: weaponID,
		UID:      c.uid,
		Region:   c.region,
	})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/event/calculate.json/zzz/batch_compute", c.baseURL)
	return doRequest[AvatarCalcData](ctx, c, fasthttp.MethodPost, url, body)
}

type calcRequest struct {
	AvatarID int64  `json:"avatar_id"`
	WeaponID int64  `json:"weapon_id,omitempty"`
	UID      string `json:"uid"`
	Region   string `json:"region"`
}

func doRequest[T any](ctx context.Context, c *Client, method, url string, body []byte) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Cookie", c.cookie)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var env envelope[T]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, err
	}
	if env.Retcode != 0 {
		return nil, fmt.Errorf("API retcode %d: %s", env.Retcode, env.Message)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("API returned empty data")
	}
	return env.Data, nil
}
