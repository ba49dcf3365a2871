package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS journeys (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'draft',
				trigger_type VARCHAR(50) NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				content JSONB NOT NULL DEFAULT '{"nodes":[],"edges":[]}',
				re_entry_policy VARCHAR(50) NOT NULL DEFAULT 'never',
				start_date TIMESTAMP WITH TIME ZONE,
				end_date TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_journeys_tenant ON journeys (tenant_id);
			CREATE INDEX IF NOT EXISTS idx_journeys_status ON journeys (status) WHERE deleted_at IS NULL;

			CREATE TABLE IF NOT EXISTS journey_participants (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL REFERENCES journeys (id),
				tenant_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'active',
				current_node_id VARCHAR(255),
				entered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				next_step_at TIMESTAMP WITH TIME ZONE,
				converted_at TIMESTAMP WITH TIME ZONE,
				exited_at TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_participants_due
				ON journey_participants (next_step_at)
				WHERE status = 'active';
			CREATE INDEX IF NOT EXISTS idx_participants_journey_user
				ON journey_participants (journey_id, user_id, entered_at DESC);

			CREATE TABLE IF NOT EXISTS journey_logs (
				id UUID PRIMARY KEY,
				journey_id UUID NOT NULL,
				participant_id UUID,
				node_id VARCHAR(255),
				event_type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				details JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_journey_logs_journey ON journey_logs (journey_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_journey_logs_participant ON journey_logs (participant_id, created_at);

			CREATE TABLE IF NOT EXISTS segments (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				rules JSONB NOT NULL DEFAULT '[]',
				combination VARCHAR(10) NOT NULL DEFAULT 'and'
			);

			CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				activity VARCHAR(50) NOT NULL DEFAULT 'active',
				subscriptions JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX IF NOT EXISTS idx_users_activity ON users (tenant_id, activity);

			CREATE TABLE IF NOT EXISTS orders (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				placed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_orders_user_placed ON orders (user_id, placed_at DESC);

			CREATE TABLE IF NOT EXISTS message_templates (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				subject VARCHAR(500) NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS coupons (
				id VARCHAR(255) PRIMARY KEY,
				code VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL DEFAULT '',
				discount_value NUMERIC(12, 2) NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS wallets (
				user_id VARCHAR(255) PRIMARY KEY,
				balance NUMERIC(12, 2) NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS wallet_transactions (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				amount NUMERIC(12, 2) NOT NULL,
				balance_before NUMERIC(12, 2) NOT NULL,
				balance_after NUMERIC(12, 2) NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_wallet_transactions_user ON wallet_transactions (user_id, created_at DESC);
		`,
	}
}
