// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpclient provides an HTTP client for the pool API.
// Calls that change the pool are made on behalf of a caller address.
package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/vechain/lsp/api/governance"
	"github.com/vechain/lsp/api/pool"
	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/eventdb"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
	"github.com/vechain/lsp/staking/withdrawals"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNot200Status = errors.New("not 200 status code")
)

// StatusError carries the status and body of a failed request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error - Status Code %d - %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrNot200Status
}

// Client represents the HTTP client for the pool API.
type Client struct {
	url    string
	c      *http.Client
	caller *lsp.Address
}

// New creates a new Client with the provided URL.
func New(url string) *Client {
	return NewWithHTTP(url, http.DefaultClient)
}

func NewWithHTTP(url string, c *http.Client) *Client {
	return &Client{
		url: url,
		c:   c,
	}
}

// As returns a client acting on behalf of caller.
func (c *Client) As(caller lsp.Address) *Client {
	return &Client{
		url:    c.url,
		c:      c.c,
		caller: &caller,
	}
}

// Summary retrieves the pool state.
func (c *Client) Summary() (*staking.Summary, error) {
	var summary staking.Summary
	if err := c.get("/pool", &summary); err != nil {
		return nil, fmt.Errorf("unable to retrieve summary - %w", err)
	}
	return &summary, nil
}

// Holding retrieves the shares and ether of addr.
func (c *Client) Holding(addr lsp.Address) (*pool.Holding, error) {
	var holding pool.Holding
	if err := c.get("/pool/shares/"+addr.String(), &holding); err != nil {
		return nil, fmt.Errorf("unable to retrieve holding - %w", err)
	}
	return &holding, nil
}

// Deposit submits ether on behalf of the caller and returns the minted shares.
func (c *Client) Deposit(amount *uint256.Int, referral lsp.Address) (*uint256.Int, error) {
	var res pool.DepositResult
	if err := c.post("/pool/deposits", &pool.Deposit{Amount: amount, Referral: referral}, &res); err != nil {
		return nil, fmt.Errorf("unable to deposit - %w", err)
	}
	return res.Shares, nil
}

// SimulateReport returns the outcome of a report without applying it.
func (c *Client) SimulateReport(report *staking.Report) (*staking.ReportResult, error) {
	var res staking.ReportResult
	if err := c.post("/pool/reports/simulate", report, &res); err != nil {
		return nil, fmt.Errorf("unable to simulate report - %w", err)
	}
	return &res, nil
}

// SubmitReport submits an oracle report.
func (c *Client) SubmitReport(report *staking.Report) (*staking.ReportResult, error) {
	var res staking.ReportResult
	if err := c.post("/pool/reports", report, &res); err != nil {
		return nil, fmt.Errorf("unable to submit report - %w", err)
	}
	return &res, nil
}

// ReceiveRewardIncome credits ether to the reward income balance.
func (c *Client) ReceiveRewardIncome(amount *uint256.Int) (*staking.Summary, error) {
	var summary staking.Summary
	if err := c.post("/pool/income/rewards", &pool.Income{Amount: amount}, &summary); err != nil {
		return nil, fmt.Errorf("unable to receive reward income - %w", err)
	}
	return &summary, nil
}

// ReceiveWithdrawalIncome credits ether to the withdrawal income balance.
func (c *Client) ReceiveWithdrawalIncome(amount *uint256.Int) (*staking.Summary, error) {
	var summary staking.Summary
	if err := c.post("/pool/income/withdrawals", &pool.Income{Amount: amount}, &summary); err != nil {
		return nil, fmt.Errorf("unable to receive withdrawal income - %w", err)
	}
	return &summary, nil
}

// RequestBurn asks to burn shares of the caller at the next report.
func (c *Client) RequestBurn(shares *uint256.Int) (*pool.Holding, error) {
	var holding pool.Holding
	if err := c.post("/pool/burns", &pool.SharesRequest{Shares: shares}, &holding); err != nil {
		return nil, fmt.Errorf("unable to request burn - %w", err)
	}
	return &holding, nil
}

// RequestWithdrawal escrows shares of the caller in a new withdrawal request.
func (c *Client) RequestWithdrawal(shares *uint256.Int) (*withdrawals.Request, error) {
	var request withdrawals.Request
	if err := c.post("/pool/withdrawals", &pool.SharesRequest{Shares: shares}, &request); err != nil {
		return nil, fmt.Errorf("unable to request withdrawal - %w", err)
	}
	return &request, nil
}

// Withdrawal retrieves a withdrawal request by id.
func (c *Client) Withdrawal(id uint64) (*withdrawals.Request, error) {
	var request withdrawals.Request
	if err := c.get("/pool/withdrawals/"+strconv.FormatUint(id, 10), &request); err != nil {
		return nil, fmt.Errorf("unable to retrieve withdrawal - %w", err)
	}
	return &request, nil
}

// WithdrawalsOf retrieves the withdrawal requests of owner.
func (c *Client) WithdrawalsOf(owner lsp.Address) ([]*withdrawals.Request, error) {
	var requests []*withdrawals.Request
	if err := c.get("/pool/withdrawals?owner="+owner.String(), &requests); err != nil {
		return nil, fmt.Errorf("unable to retrieve withdrawals - %w", err)
	}
	return requests, nil
}

// ClaimWithdrawal pays out a finalized request of the caller.
func (c *Client) ClaimWithdrawal(id uint64) (*pool.ClaimResult, error) {
	var res pool.ClaimResult
	if err := c.post("/pool/withdrawals/"+strconv.FormatUint(id, 10)+"/claim", nil, &res); err != nil {
		return nil, fmt.Errorf("unable to claim withdrawal - %w", err)
	}
	return &res, nil
}

// DepositBufferedEther sends buffered ether to count new validators.
func (c *Client) DepositBufferedEther(count uint64) (*governance.DepositResult, error) {
	var res governance.DepositResult
	if err := c.post("/admin/deposits", &governance.Count{Count: count}, &res); err != nil {
		return nil, fmt.Errorf("unable to deposit buffered ether - %w", err)
	}
	return &res, nil
}

// PauseStaking stops deposits.
func (c *Client) PauseStaking() (*staking.Summary, error) {
	return c.admin("/admin/staking/pause", nil)
}

// ResumeStaking allows deposits again.
func (c *Client) ResumeStaking() (*staking.Summary, error) {
	return c.admin("/admin/staking/resume", nil)
}

// SetStakingLimit sets the stake limit.
func (c *Client) SetStakingLimit(maxLimit, growthPerBlock *uint256.Int) (*staking.Summary, error) {
	return c.admin("/admin/staking/limit", &governance.StakingLimit{MaxLimit: maxLimit, GrowthPerBlock: growthPerBlock})
}

func (c *Client) admin(path string, body any) (*staking.Summary, error) {
	var summary staking.Summary
	if err := c.post(path, body, &summary); err != nil {
		return nil, fmt.Errorf("unable to call %s - %w", path, err)
	}
	return &summary, nil
}

// FilterDeposits retrieves recorded deposits.
func (c *Client) FilterDeposits(query url.Values) ([]*eventdb.Deposit, error) {
	var deposits []*eventdb.Deposit
	if err := c.get("/events/deposits?"+query.Encode(), &deposits); err != nil {
		return nil, fmt.Errorf("unable to filter deposits - %w", err)
	}
	return deposits, nil
}

// FilterRebases retrieves recorded rebases.
func (c *Client) FilterRebases(query url.Values) ([]*staking.RebaseEvent, error) {
	var rebases []*staking.RebaseEvent
	if err := c.get("/events/rebases?"+query.Encode(), &rebases); err != nil {
		return nil, fmt.Errorf("unable to filter rebases - %w", err)
	}
	return rebases, nil
}

// RawHTTPPost sends a raw HTTP POST request to the specified URL with the provided data.
func (c *Client) RawHTTPPost(url string, calldata any) ([]byte, int, error) {
	var data []byte
	var err error

	if raw, ok := calldata.([]byte); ok {
		data = raw
	} else {
		data, err = json.Marshal(calldata)
		if err != nil {
			return nil, 0, fmt.Errorf("unable to marshal payload - %w", err)
		}
	}

	return c.rawHTTPRequest(http.MethodPost, c.url+url, bytes.NewBuffer(data))
}

// RawHTTPGet sends a raw HTTP GET request to the specified URL.
func (c *Client) RawHTTPGet(url string) ([]byte, int, error) {
	return c.rawHTTPRequest(http.MethodGet, c.url+url, nil)
}

func (c *Client) get(path string, out any) error {
	body, status, err := c.RawHTTPGet(path)
	return decode(body, status, err, out)
}

func (c *Client) post(path string, payload, out any) error {
	var (
		body   []byte
		status int
		err    error
	)
	if payload == nil {
		body, status, err = c.rawHTTPRequest(http.MethodPost, c.url+path, nil)
	} else {
		body, status, err = c.RawHTTPPost(path, payload)
	}
	return decode(body, status, err, out)
}

func decode(body []byte, status int, err error, out any) error {
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{Code: status, Body: string(bytes.TrimSpace(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unable to unmarshal response - %w", err)
	}
	return nil
}

func (c *Client) rawHTTPRequest(method, url string, payload io.Reader) ([]byte, int, error) {
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.caller != nil {
		req.Header.Set(utils.CallerHeader, c.caller.String())
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response body: %w", err)
	}
	return responseBody, resp.StatusCode, nil
}
