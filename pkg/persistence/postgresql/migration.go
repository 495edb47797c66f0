package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_table VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_workspace_id ON flows(workspace_id);
			CREATE INDEX idx_flows_trigger ON flows(workspace_id, trigger_type, trigger_table);
			CREATE INDEX idx_flows_active ON flows(active);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);
		`,
	}
}
