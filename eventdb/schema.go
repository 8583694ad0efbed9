// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

// amounts are stored as decimal text, addresses as raw bytes.
const depositTableSchema = `
create table if not exists deposit (
	seq integer primary key autoincrement,
	blockNumber integer not null,
	timestamp integer not null,
	depositor blob(20) not null,
	referral blob(20) not null,
	amount text not null,
	shares text not null
);

CREATE INDEX if not exists depositTimestampIndex on deposit(timestamp);
CREATE INDEX if not exists depositorIndex on deposit(depositor);
CREATE INDEX if not exists referralIndex on deposit(referral);
`

const rebaseTableSchema = `
create table if not exists rebase (
	timestamp integer primary key,
	timeElapsed integer not null,
	clValidators integer not null,
	clBalance text not null,
	preTotalShares text not null,
	preTotalPooledEther text not null,
	postTotalShares text not null,
	postTotalPooledEther text not null,
	feeShares text not null,
	withdrawalsLocked text not null,
	sharesBurned text not null
);
`

const rebaseColumns = `timestamp, timeElapsed, clValidators, clBalance, preTotalShares, preTotalPooledEther,
	postTotalShares, postTotalPooledEther, feeShares, withdrawalsLocked, sharesBurned`
