package store

// tableDefinitions creates every table used by the engine if it does not
// already exist. Order matters: foreign keys point backwards only.
var tableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		unsubscribe_token VARCHAR(64) NOT NULL UNIQUE,
		subscribed_at TIMESTAMP,
		unsubscribed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers(status)`,

	`CREATE TABLE IF NOT EXISTS contact_lists (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		description TEXT,
		provider_segment_id VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS list_memberships (
		list_id VARCHAR(36) NOT NULL REFERENCES contact_lists(id) ON DELETE CASCADE,
		subscriber_id VARCHAR(36) NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		added_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (list_id, subscriber_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_list_memberships_subscriber ON list_memberships(subscriber_id)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id VARCHAR(36) PRIMARY KEY,
		subject VARCHAR(500) NOT NULL,
		content TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		scheduled_at TIMESTAMP,
		schedule_type VARCHAR(20) NOT NULL DEFAULT 'none',
		schedule_config JSONB,
		last_sent_at TIMESTAMP,
		sent_at TIMESTAMP,
		recipient_count INTEGER NOT NULL DEFAULT 0,
		contact_list_id VARCHAR(36) REFERENCES contact_lists(id),
		template_id VARCHAR(36),
		reply_to VARCHAR(255),
		slug VARCHAR(255) UNIQUE,
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		excerpt TEXT,
		ab_test_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		ab_subject_b VARCHAR(500),
		ab_from_name_b VARCHAR(255),
		ab_wait_hours INTEGER,
		ab_test_sent_at TIMESTAMP,
		ab_winner VARCHAR(1),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_status_scheduled ON campaigns(status, scheduled_at)`,

	`CREATE TABLE IF NOT EXISTS campaign_ab_remainders (
		campaign_id VARCHAR(36) PRIMARY KEY REFERENCES campaigns(id) ON DELETE CASCADE,
		subscriber_ids JSONB NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sequences (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		default_send_time VARCHAR(5) NOT NULL DEFAULT '09:00',
		reply_to VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sequence_steps (
		id VARCHAR(36) PRIMARY KEY,
		sequence_id VARCHAR(36) NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		step_number INTEGER NOT NULL,
		delay_days INTEGER NOT NULL DEFAULT 0,
		delay_time VARCHAR(5),
		delay_minutes INTEGER,
		subject VARCHAR(500) NOT NULL,
		content TEXT NOT NULL,
		template_id VARCHAR(36),
		is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (sequence_id, step_number)
	)`,
	`CREATE TABLE IF NOT EXISTS subscriber_sequence_enrollments (
		id VARCHAR(36) PRIMARY KEY,
		subscriber_id VARCHAR(36) NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		sequence_id VARCHAR(36) NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		current_step INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMP,
		UNIQUE (subscriber_id, sequence_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_pending ON subscriber_sequence_enrollments(sequence_id, completed_at)`,

	`CREATE TABLE IF NOT EXISTS delivery_logs (
		id VARCHAR(36) PRIMARY KEY,
		campaign_id VARCHAR(36) REFERENCES campaigns(id) ON DELETE CASCADE,
		sequence_id VARCHAR(36) REFERENCES sequences(id) ON DELETE CASCADE,
		sequence_step_id VARCHAR(36) REFERENCES sequence_steps(id) ON DELETE CASCADE,
		subscriber_id VARCHAR(36) NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		email_subject VARCHAR(500),
		ab_variant VARCHAR(1),
		status VARCHAR(20) NOT NULL,
		provider_message_id VARCHAR(255),
		sent_at TIMESTAMP,
		delivered_at TIMESTAMP,
		opened_at TIMESTAMP,
		clicked_at TIMESTAMP,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_logs_campaign ON delivery_logs(campaign_id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_logs_provider_msg ON delivery_logs(provider_message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_logs_subscriber ON delivery_logs(subscriber_id)`,

	`CREATE TABLE IF NOT EXISTS click_events (
		id VARCHAR(36) PRIMARY KEY,
		delivery_log_id VARCHAR(36) NOT NULL REFERENCES delivery_logs(id) ON DELETE CASCADE,
		subscriber_id VARCHAR(36) NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
		clicked_url TEXT NOT NULL,
		clicked_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_dedup ON click_events(delivery_log_id, clicked_url, clicked_at)`,

	`CREATE TABLE IF NOT EXISTS short_urls (
		id VARCHAR(36) PRIMARY KEY,
		short_code VARCHAR(8) NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 1,
		campaign_id VARCHAR(36) REFERENCES campaigns(id) ON DELETE CASCADE,
		sequence_step_id VARCHAR(36) REFERENCES sequence_steps(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS brand_settings (
		id VARCHAR(36) PRIMARY KEY,
		sender_name VARCHAR(255) NOT NULL,
		sender_email VARCHAR(255) NOT NULL,
		reply_to VARCHAR(255),
		logo_url TEXT,
		footer_text TEXT,
		primary_color VARCHAR(20),
		company_address TEXT,
		default_template_id VARCHAR(64),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS admin_users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'admin' CHECK (role IN ('owner', 'admin')),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS admin_sessions (
		id VARCHAR(36) PRIMARY KEY,
		token VARCHAR(64) NOT NULL UNIQUE,
		user_id VARCHAR(36) NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_events (
		id VARCHAR(36) PRIMARY KEY,
		event_id VARCHAR(255) NOT NULL UNIQUE,
		kind VARCHAR(20) NOT NULL,
		delivery_log_id VARCHAR(36),
		raw_payload JSONB,
		received_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		process_error TEXT
	)`,
}

// brandSettingsSingletonID is the fixed id of the one BrandSettings row.
const brandSettingsSingletonID = "00000000-0000-0000-0000-000000000001"
